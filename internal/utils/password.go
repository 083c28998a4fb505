package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSpecials = "!@#$%^&*"

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// PasswordProblems lists the strength rules pw breaks; nil means acceptable.
func PasswordProblems(pw string) []string {
	var out []string
	if len(pw) < 6 {
		out = append(out, "password must be at least 6 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper {
		out = append(out, "password must contain an uppercase letter")
	}
	if !lower {
		out = append(out, "password must contain a lowercase letter")
	}
	if !digit {
		out = append(out, "password must contain a digit")
	}
	if !special {
		out = append(out, "password must contain one of "+passwordSpecials)
	}
	return out
}
