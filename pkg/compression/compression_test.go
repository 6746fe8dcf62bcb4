package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("<p>clipboard</p>", 200))
	require.True(t, ShouldCompress(data))

	packed, err := Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data))

	unpacked, err := Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, data, unpacked)
}

func TestShouldCompress(t *testing.T) {
	assert.False(t, ShouldCompress([]byte("short")))
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress([]byte("not gzip"))
	assert.Error(t, err)
}
