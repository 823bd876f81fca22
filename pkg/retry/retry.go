package retry

import (
	"context"
	"errors"
	"time"
)

// Policy retries an operation a bounded number of times with a fixed pause.
type Policy struct {
	Attempts int           `yaml:"attempts" default:"2" validate:"gte=1,lte=10"`
	Delay    time.Duration `yaml:"delay" default:"1s"`
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts are
// spent or ctx is done. attempt starts at 1. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = fn(ctx, i)
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
