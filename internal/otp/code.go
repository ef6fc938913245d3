package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

var codePattern = regexp.MustCompile(`^\d{6}$`)

// ValidFormat reports whether code is exactly six ASCII digits.
func ValidFormat(code string) bool {
	return codePattern.MatchString(code)
}

// randomCode returns a uniformly distributed zero-padded numeric string.
func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
