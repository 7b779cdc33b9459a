package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQKnownEncodings(t *testing.T) {
	t.Parallel()
	known := map[int]string{
		0:   "A",
		1:   "C",
		-1:  "D",
		2:   "E",
		15:  "e",
		16:  "gB",
		511: "+f",
		-33: "jC",
	}
	for value, encoded := range known {
		assert.Equal(t, encoded, string(appendVLQ(nil, value)), "value %d", value)
	}
}

func TestVLQRoundTrip(t *testing.T) {
	t.Parallel()
	for _, value := range []int{0, 1, -1, 5, -16, 31, 32, 1000, -12345, 1 << 20, -(1 << 25)} {
		encoded := appendVLQ(nil, value)
		decoded, n, err := decodeVLQ(string(encoded))
		require.NoError(t, err, "value %d", value)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, value, decoded)
	}
}

func TestVLQDecodeConsumesPrefix(t *testing.T) {
	t.Parallel()
	// "gB" followed by more fields; only the first value should be read.
	value, n, err := decodeVLQ("gBC")
	require.NoError(t, err)
	assert.Equal(t, 16, value)
	assert.Equal(t, 2, n)
}

func TestVLQDecodeErrors(t *testing.T) {
	t.Parallel()
	_, _, err := decodeVLQ("!")
	assert.Error(t, err)

	_, _, err = decodeVLQ("g") // continuation bit with nothing after it
	assert.Error(t, err)

	_, _, err = decodeVLQ("")
	assert.Error(t, err)
}
