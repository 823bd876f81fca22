package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	err := p.PublishBatch(context.Background(), "fxbias.test", []Message{
		{Key: []byte("USD"), Value: map[string]int{"score": 2}},
		{Key: []byte("JPY"), Value: "raw"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "fxbias.test", w.msgs[0].Topic)
	assert.Equal(t, []byte("USD"), w.msgs[0].Key)
	assert.JSONEq(t, `{"score":2}`, string(w.msgs[0].Value))
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
	assert.Equal(t, at, w.msgs[1].Time)

	require.NoError(t, p.PublishBatch(context.Background(), "fxbias.test", nil))
	assert.Len(t, w.msgs, 2)
}

func TestProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip")

	before := testutil.ToFloat64(producerErrsTotal.WithLabelValues("fxbias.errors"))
	err := p.Publish(context.Background(), "fxbias.errors", []byte("k"), "v")
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, before+1, testutil.ToFloat64(producerErrsTotal.WithLabelValues("fxbias.errors")))
}

func TestProducer_UnencodableValue(t *testing.T) {
	p := newProducer(&fakeWriter{}, "gzip")
	err := p.Publish(context.Background(), "t", nil, make(chan int))
	assert.ErrorContains(t, err, "marshal value")
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestProducerConfig_Validate(t *testing.T) {
	cfg := defaultProducerConfig()
	WithBrokers([]string{"localhost:9092"})(cfg)
	WithCompression("")(cfg)
	WithMaxAttempts(0)(cfg)
	assert.NoError(t, cfg.validate())
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, 3, cfg.MaxAttempts)

	WithRequiredAcks(2)(cfg)
	assert.ErrorContains(t, cfg.validate(), "required acks")

	WithRequiredAcks(1)(cfg)
	WithCompression("brotli")(cfg)
	assert.ErrorContains(t, cfg.validate(), "unsupported compression")
}
