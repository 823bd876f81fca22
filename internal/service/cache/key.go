package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"
)

var ErrNotSerializable = errors.New("cache key payload is not serializable")

// CreateKey derives "prefix:hash" from the JSON form of payload. The hash is
// djb2 with xor over UTF-16 code units, reduced to an unsigned 32-bit value.
func CreateKey(prefix string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	var h uint32 = 5381
	for _, u := range utf16.Encode([]rune(string(b))) {
		h = (h * 33) ^ uint32(u)
	}
	return fmt.Sprintf("%s:%d", prefix, h), nil
}
