package matching

import (
	"math/rand/v2"
	"strings"
)

// CodePrefix starts every group join code.
const CodePrefix = "MESH-"

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 4
)

// GenerateCode returns a new join code: CodePrefix plus four base-36 characters.
// Uniqueness is left to the remote store; joins look codes up, creates do not.
func GenerateCode() string {
	var b strings.Builder
	b.WriteString(CodePrefix)
	for range codeLength {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode uppercases user input and restores a missing prefix.
// It returns "" when the input cannot be a join code.
func NormalizeCode(input string) string {
	code := strings.ToUpper(strings.TrimSpace(input))
	if !strings.HasPrefix(code, CodePrefix) {
		code = CodePrefix + code
	}
	suffix := strings.TrimPrefix(code, CodePrefix)
	if len(suffix) != codeLength {
		return ""
	}
	for i := 0; i < len(suffix); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(suffix[i])) {
			return ""
		}
	}
	return code
}
