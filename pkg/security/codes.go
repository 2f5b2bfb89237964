package security

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// codeAlphabet drops 0/O and 1/I. Its length (32) divides 256, so reducing a
// random byte modulo len keeps every symbol equally likely.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random code of length symbols from codeAlphabet.
// Used for program public codes and customer card codes.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
