package user

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// generatedPasswordBytes gives 48 bits of entropy, encoded as 8 URL-safe characters.
const generatedPasswordBytes = 6

// GeneratePassword returns a random URL-safe password for auto-provisioned accounts.
func GeneratePassword() (string, error) {
	b := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
