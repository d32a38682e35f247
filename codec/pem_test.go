package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePem_Wrapping(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 100) // 136 base64 characters

	pemText := EncodePem(data, PublicKeyLabel)
	lines := strings.Split(pemText, "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "-----BEGIN PUBLIC KEY-----", lines[0])
	assert.Len(t, lines[1], 64)
	assert.Len(t, lines[2], 64)
	assert.Len(t, lines[3], 8)
	assert.Equal(t, "-----END PUBLIC KEY-----", lines[4])
}

func TestPemRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 48, 300} {
		data := bytes.Repeat([]byte{0xa5}, size)

		label, decoded, err := DecodePemBlock(EncodePem(data, PrivateKeyLabel))
		require.NoError(t, err)
		assert.Equal(t, PrivateKeyLabel, label)
		assert.Equal(t, size, len(decoded))
		if size > 0 {
			assert.Equal(t, data, decoded)
		}
	}
}

func TestDecodePem_ToleratesWhitespace(t *testing.T) {
	pemText := "\r\n  -----BEGIN PUBLIC KEY-----\r\n aGVs\tbG8g\r\nd29y bGQ=\r\n-----END PUBLIC KEY-----\n\n"

	decoded, err := DecodePem(pemText)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), decoded)
}

func TestDecodePem_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing footer", "-----BEGIN PUBLIC KEY-----\naGVsbG8=\n"},
		{"missing header", "aGVsbG8=\n-----END PUBLIC KEY-----"},
		{"bare base64", "aGVsbG8="},
		{"mismatched labels", "-----BEGIN PUBLIC KEY-----\naGVsbG8=\n-----END PRIVATE KEY-----"},
		{"bad body", "-----BEGIN PUBLIC KEY-----\naGV$bG8=\n-----END PUBLIC KEY-----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePem(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEncoding)
		})
	}
}

func TestIsPem(t *testing.T) {
	assert.True(t, IsPem(EncodePem([]byte("x"), PublicKeyLabel)))
	assert.False(t, IsPem("aGVsbG8="))
}
