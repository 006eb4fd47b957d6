package hashutil_test

import (
	"encoding/hex"
	"testing"

	"github.com/rohmanhakim/wikisearch/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func TestHashBytes_SHA256KnownVectors(t *testing.T) {
	vectors := []struct {
		input    string
		expected string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}

	for _, v := range vectors {
		result, err := hashutil.HashBytes([]byte(v.input), hashutil.HashAlgoSHA256)
		require.NoError(t, err)
		assert.Equal(t, v.expected, result, "input: %q", v.input)
	}
}

func TestHashBytes_BLAKE3KnownVectors(t *testing.T) {
	vectors := []struct {
		input    string
		expected string
	}{
		{"", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
		{"abc", "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85"},
	}

	for _, v := range vectors {
		result, err := hashutil.HashBytes([]byte(v.input), hashutil.HashAlgoBLAKE3)
		require.NoError(t, err)
		assert.Equal(t, v.expected, result, "input: %q", v.input)
	}
}

func TestHashBytes_BLAKE3MatchesLibrary(t *testing.T) {
	data := []byte("https://upload.wikimedia.org/wikipedia/commons/thumb/cat.jpg")
	expected := blake3.Sum256(data)

	result, err := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(expected[:]), result)
}

func TestHashBytes_UnsupportedAlgorithm(t *testing.T) {
	result, err := hashutil.HashBytes([]byte("test"), "md5")
	assert.ErrorContains(t, err, "unsupported hash algorithm")
	assert.Empty(t, result)
}

func TestShortHash(t *testing.T) {
	full, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)

	short, err := hashutil.ShortHash([]byte("abc"), hashutil.HashAlgoBLAKE3, 16)
	require.NoError(t, err)
	assert.Equal(t, full[:16], short)

	whole, err := hashutil.ShortHash([]byte("abc"), hashutil.HashAlgoBLAKE3, 0)
	require.NoError(t, err)
	assert.Equal(t, full, whole)

	_, err = hashutil.ShortHash([]byte("abc"), "nope", 8)
	assert.Error(t, err)
}
