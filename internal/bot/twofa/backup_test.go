package twofa

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backupCodeRe = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerateBackupCodes(t *testing.T) {
	t.Parallel()

	codes, err := GenerateBackupCodes(DefaultBackupCodeCount)
	require.NoError(t, err)
	require.Len(t, codes, DefaultBackupCodeCount)

	seen := make(map[string]struct{})
	for _, c := range codes {
		assert.Regexp(t, backupCodeRe, c)
		seen[c] = struct{}{}
	}
	assert.Len(t, seen, DefaultBackupCodeCount, "codes must be unique")
}

func TestGenerateBackupCodes_UniformAlphabet(t *testing.T) {
	t.Parallel()

	// bytes at or above maxBackupByte are redrawn, so all 36 characters
	// should show up across a modest sample
	counts := make(map[byte]int)
	for i := 0; i < 200; i++ {
		codes, err := GenerateBackupCodes(1)
		require.NoError(t, err)
		for j := 0; j < len(codes[0]); j++ {
			if codes[0][j] != '-' {
				counts[codes[0][j]]++
			}
		}
	}

	for i := 0; i < len(backupAlphabet); i++ {
		assert.Positive(t, counts[backupAlphabet[i]], "character %q never generated", backupAlphabet[i])
	}
}

func TestNormalizeBackupCode(t *testing.T) {

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "canonical", in: "AB12-CD34", want: "AB12-CD34"},
		{name: "lowercase", in: "ab12-cd34", want: "AB12-CD34"},
		{name: "no dash", in: "AB12CD34", want: "AB12-CD34"},
		{name: "spaces", in: "AB12 CD34", want: "AB12-CD34"},
		{name: "mixed separators", in: " ab12 - cd34 ", want: "AB12-CD34"},
		{name: "wrong length untouched", in: "AB12CD", want: "AB12CD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBackupCode(tt.in))
		})
	}
}

func TestVerifyBackupCode_SingleUse(t *testing.T) {
	t.Parallel()

	codes, err := GenerateBackupCodes(3)
	require.NoError(t, err)
	hashes := HashBackupCodes(codes)

	ok, remaining := VerifyBackupCode(codes[1], hashes)
	require.True(t, ok)
	require.Len(t, remaining, 2)

	// same code again against the updated set must fail
	ok, remaining2 := VerifyBackupCode(codes[1], remaining)
	assert.False(t, ok)
	assert.Equal(t, remaining, remaining2)

	// other codes still work
	ok, _ = VerifyBackupCode(codes[0], remaining)
	assert.True(t, ok)
}

func TestVerifyBackupCode_AcceptsAnySpacing(t *testing.T) {
	t.Parallel()

	hashes := []string{HashBackupCode("AB12-CD34")}

	for _, input := range []string{"AB12-CD34", "ab12cd34", "AB12 CD34", "ab12-CD34"} {
		ok, remaining := VerifyBackupCode(input, hashes)
		assert.True(t, ok, "input %q", input)
		assert.Empty(t, remaining)
	}
}

func TestVerifyBackupCode_Miss(t *testing.T) {
	t.Parallel()

	hashes := []string{HashBackupCode("AB12-CD34")}

	ok, remaining := VerifyBackupCode("ZZ99-ZZ99", hashes)
	assert.False(t, ok)
	assert.Equal(t, hashes, remaining)
}
