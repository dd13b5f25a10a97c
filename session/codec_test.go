package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	deadline := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b, err := Codec{}.Encode(deadline, map[string]interface{}{"_token": []byte("abc")})
	require.NoError(t, err)

	gotDeadline, values, err := Codec{}.Decode(b)
	require.NoError(t, err)
	assert.True(t, deadline.Equal(gotDeadline))
	assert.Equal(t, []byte("abc"), values["_token"])
}

func TestCodec_RejectsNonBytes(t *testing.T) {
	_, err := Codec{}.Encode(time.Now(), map[string]interface{}{"n": 1})
	assert.Error(t, err)
}

func TestCodec_RejectsGarbage(t *testing.T) {
	_, _, err := Codec{}.Decode([]byte("\xc1"))
	assert.Error(t, err)
}
