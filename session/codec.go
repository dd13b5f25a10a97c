package session

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is an scs.Codec storing sessions as msgpack. Only []byte values
// are supported, which is all Session ever writes.
type Codec struct{}

type encodedSession struct {
	Deadline time.Time         `msgpack:"d"`
	Values   map[string][]byte `msgpack:"v"`
}

func (Codec) Encode(deadline time.Time, values map[string]interface{}) ([]byte, error) {
	enc := encodedSession{Deadline: deadline, Values: make(map[string][]byte, len(values))}
	for k, v := range values {
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("session: value %q is %T, want []byte", k, v)
		}
		enc.Values[k] = b
	}
	return msgpack.Marshal(enc)
}

func (Codec) Decode(b []byte) (time.Time, map[string]interface{}, error) {
	var enc encodedSession
	if err := msgpack.Unmarshal(b, &enc); err != nil {
		return time.Time{}, nil, fmt.Errorf("session: decode: %w", err)
	}
	values := make(map[string]interface{}, len(enc.Values))
	for k, v := range enc.Values {
		values[k] = v
	}
	return enc.Deadline, values, nil
}
