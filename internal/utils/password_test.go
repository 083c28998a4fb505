package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secr3t!x")
	require.NoError(t, err)

	assert.NotEqual(t, "Secr3t!x", hash)
	assert.True(t, CheckPassword(hash, "Secr3t!x"))
	assert.False(t, CheckPassword(hash, "secr3t!x"))
}

func TestPasswordProblems(t *testing.T) {
	tests := []struct {
		name string
		pw   string
		want int
	}{
		{"strong", "Abc12!", 0},
		{"too short", "Ab1!", 1},
		{"no upper", "abc123!", 1},
		{"no special", "Abc1234", 1},
		{"only lower", "abcdefg", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, PasswordProblems(tt.pw), tt.want)
		})
	}
}
