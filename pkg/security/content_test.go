package security

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

func newTestCipher(t *testing.T, password string) (*ContentCipher, string) {
	t.Helper()
	salt, err := GenerateSalt()
	require.NoError(t, err)
	c, err := NewContentCipher(password, salt)
	require.NoError(t, err)
	return c, salt
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, SaltSize)
}

func TestNewContentCipher(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		salt     string
		wantErr  bool
	}{
		{name: "valid", password: "hunter22", salt: salt},
		{name: "empty password", password: "", salt: salt, wantErr: true},
		{name: "empty salt", password: "hunter22", salt: "", wantErr: true},
		{name: "malformed salt", password: "hunter22", salt: "%%%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContentCipher(tt.password, tt.salt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, _ := newTestCipher(t, "hunter22")

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "simple string", plaintext: []byte("hello world")},
		{name: "json data", plaintext: []byte(`{"snowDefaults":{"slope":3}}`)},
		{name: "empty", plaintext: []byte{}},
		{name: "large data", plaintext: bytes.Repeat([]byte("load"), 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.False(t, bytes.Equal(sealed, tt.plaintext))

			opened, err := c.Decrypt(sealed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.plaintext, opened))
		})
	}
}

func TestDecryptErrors(t *testing.T) {
	c, _ := newTestCipher(t, "hunter22")

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{name: "nil", ciphertext: nil},
		{name: "too short", ciphertext: []byte{0x01, 0x02}},
		{name: "corrupted", ciphertext: bytes.Repeat([]byte("x"), 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.ciphertext)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestContentRoundtrip(t *testing.T) {
	c, _ := newTestCipher(t, "hunter22")

	content := types.Content{
		"snowDefaults": map[string]any{"slope": 3.0, "location": "Burnaby"},
		"results":      map[string]any{"basicSnowLoad": nil},
	}

	encoded, err := c.EncryptContent(content)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "Burnaby")

	decoded, err := c.DecryptContent(encoded)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)

	empty, err := c.EncryptContent(nil)
	require.NoError(t, err)
	decoded, err = c.DecryptContent(empty)
	require.NoError(t, err)
	assert.Equal(t, types.Content{}, decoded)
}

func TestDecryptContentWrongPassword(t *testing.T) {
	c, salt := newTestCipher(t, "hunter22")
	encoded, err := c.EncryptContent(types.Content{"a": 1.0})
	require.NoError(t, err)

	wrong, err := NewContentCipher("hunter23", salt)
	require.NoError(t, err)
	_, err = wrong.DecryptContent(encoded)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = c.DecryptContent("not base64!")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSameSaltSameKey(t *testing.T) {
	c1, salt := newTestCipher(t, "hunter22")
	c2, err := NewContentCipher("hunter22", salt)
	require.NoError(t, err)

	sealed, err := c1.Encrypt([]byte("drift"))
	require.NoError(t, err)
	opened, err := c2.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "drift", string(opened))
}

func TestPasswordVerifier(t *testing.T) {
	verifier, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotContains(t, verifier, "hunter22")

	assert.True(t, VerifyPassword("hunter22", verifier))
	assert.False(t, VerifyPassword("hunter23", verifier))
	assert.False(t, VerifyPassword("hunter22", "garbage"))
	assert.False(t, VerifyPassword("hunter22", "pbkdf2-sha256$x$y$z"))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestSessionCredentials(t *testing.T) {
	creds := NewSessionCredentials("")
	_, ok := creds.Secret()
	assert.False(t, ok)

	creds.Set("hunter22")
	secret, ok := creds.Secret()
	assert.True(t, ok)
	assert.Equal(t, "hunter22", secret)

	creds.Clear()
	_, ok = creds.Secret()
	assert.False(t, ok)

	_, ok = NoCredentials{}.Secret()
	assert.False(t, ok)
}
