package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/AlexX2727/backend/internal/constants"
)

// resetCodeAlphabet omits visually ambiguous characters (0/O, 1/I/L).
const resetCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateResetCode generates a random password reset code from the
// restricted alphabet.
func GenerateResetCode() (string, error) {
	code := make([]byte, constants.ResetCodeLength)
	max := big.NewInt(int64(len(resetCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		code[i] = resetCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
