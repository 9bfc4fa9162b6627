package twofa

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultBackupCodeCount is the batch size generated at enrollment.
const DefaultBackupCodeCount = 10

const backupAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxBackupByte is the largest multiple of the alphabet size below 256.
// Bytes at or above it are redrawn so every character is equally likely.
const maxBackupByte = byte(256 / len(backupAlphabet) * len(backupAlphabet))

// GenerateBackupCodes returns n crypto-random single-use recovery codes
// in the form XXXX-XXXX (uppercase alphanumeric).
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		chars := make([]byte, 0, 8)
		for len(chars) < 8 {
			buf := make([]byte, 8-len(chars))
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("error generating backup code: %w", err)
			}
			for _, b := range buf {
				if b < maxBackupByte {
					chars = append(chars, backupAlphabet[int(b)%len(backupAlphabet)])
				}
			}
		}
		codes = append(codes, string(chars[:4])+"-"+string(chars[4:]))
	}
	return codes, nil
}

// HashBackupCode computes the deterministic storage hash of a code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// HashBackupCodes hashes a freshly generated batch for storage. The
// plaintext codes are shown to the user exactly once and never persisted.
func HashBackupCodes(codes []string) []string {
	hashed := make([]string, 0, len(codes))
	for _, c := range codes {
		hashed = append(hashed, HashBackupCode(c))
	}
	return hashed
}

// NormalizeBackupCode strips spaces and dashes, uppercases, and
// re-inserts the dash after the fourth character so that user input in
// any spacing matches the stored format.
func NormalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(code))
	if len(s) == 8 {
		s = s[:4] + "-" + s[4:]
	}
	return s
}

// VerifyBackupCode matches a candidate against the stored hashes. On a
// match the used hash is removed (single use) and the updated set is
// returned; on a miss the original set is returned unchanged.
func VerifyBackupCode(code string, storedHashes []string) (bool, []string) {
	want := HashBackupCode(NormalizeBackupCode(code))

	for i, h := range storedHashes {
		if h == want {
			remaining := make([]string, 0, len(storedHashes)-1)
			remaining = append(remaining, storedHashes[:i]...)
			remaining = append(remaining, storedHashes[i+1:]...)
			return true, remaining
		}
	}
	return false, storedHashes
}
