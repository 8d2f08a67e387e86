// Package credentials generates the short secrets families run on: 4-digit
// PINs for kids and the guard gate, and the uppercase join code printed on
// invites.
package credentials

import (
	"crypto/rand"
	"math/big"
)

const (
	pinLength      = 4
	pinDigits      = "0123456789"
	joinCodeLength = 6
	// No lowercase and no 0/O or 1/I: join codes get read out loud.
	joinCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GeneratePIN generates a random 4-digit PIN
func GeneratePIN() (string, error) {
	return randomString(pinDigits, pinLength)
}

// GenerateJoinCode generates a short uppercase alphanumeric family code
func GenerateJoinCode() (string, error) {
	return randomString(joinCodeChars, joinCodeLength)
}

// randomString builds a string of n characters drawn from chars
func randomString(chars string, n int) (string, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		out[i] = chars[num.Int64()]
	}
	return string(out), nil
}
