package idgen

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns an identifier of the form "<prefix>_<random>",
// where the random suffix is `length` characters drawn from [a-z0-9] using
// crypto/rand. Suitable for public-facing resource IDs.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("idgen: length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}

	return prefix + "_" + string(buf), nil
}
