package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

const (
	// SaltSize is the length in bytes of a per-tab salt
	SaltSize = 16

	// KeyIterations is the PBKDF2 iteration count used for content keys
	KeyIterations = 100_000

	keySize = 32
)

// ErrDecrypt is returned when content cannot be decrypted, usually because
// the password is wrong
var ErrDecrypt = errors.New("failed to decrypt content")

// GenerateSalt returns a new random salt, base64 encoded
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// ContentCipher encrypts tab content with AES-256-GCM under a key derived
// from the session password and the tab's salt.
type ContentCipher struct {
	key []byte
}

// NewContentCipher derives the content key for password and salt
func NewContentCipher(password, salt string) (*ContentCipher, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return nil, fmt.Errorf("invalid salt")
	}

	key := pbkdf2.Key([]byte(password), rawSalt, KeyIterations, keySize, sha256.New)
	return &ContentCipher{key: key}, nil
}

// Encrypt encrypts plaintext and returns it with the nonce prepended
func (c *ContentCipher) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt
func (c *ContentCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func (c *ContentCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptContent serializes content to JSON and encrypts it. The result is
// base64 encoded for storage.
func (c *ContentCipher) EncryptContent(content types.Content) (string, error) {
	if content == nil {
		content = types.Content{}
	}
	plaintext, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	sealed, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptContent reverses EncryptContent
func (c *ContentCipher) DecryptContent(encoded string) (types.Content, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", ErrDecrypt)
	}
	plaintext, err := c.Decrypt(sealed)
	if err != nil {
		return nil, err
	}

	var content types.Content
	if err := json.Unmarshal(plaintext, &content); err != nil {
		return nil, fmt.Errorf("%w: invalid content", ErrDecrypt)
	}
	if content == nil {
		content = types.Content{}
	}
	return content, nil
}

// HashPassword returns a verifier for password that can be stored and
// later checked with VerifyPassword
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	rawSalt, _ := base64.StdEncoding.DecodeString(salt)
	hash := pbkdf2.Key([]byte(password), rawSalt, KeyIterations, keySize, sha256.New)

	return fmt.Sprintf("pbkdf2-sha256$%d$%s$%s",
		KeyIterations, salt, base64.StdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword reports whether password matches a verifier produced by
// HashPassword
func VerifyPassword(password, verifier string) bool {
	parts := strings.Split(verifier, "$")
	if len(parts) != 4 || parts[0] != "pbkdf2-sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	rawSalt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(password), rawSalt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
