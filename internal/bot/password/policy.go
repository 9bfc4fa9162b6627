// Package password implements the password policy engine: candidate
// validation, bcrypt hashing/verification and the per-role default
// passwords used for credential seeding.
package password

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/mgkeit/pairalert/internal/bot/principals"
)

const (
	MinLength = 8
	MaxLength = 128
)

// allowedSymbols is the fixed punctuation allow-list; anything outside
// [A-Za-z0-9] plus this set is rejected.
const allowedSymbols = `~!?@#$%^&*_\-+()\[\]{}<>/\\|"'.,;:`

// DefaultPasswords maps privileged roles to their seed passwords. They
// are intentionally weak: the forced first-time change replaces them
// before any privileged function is reachable.
var DefaultPasswords = map[principals.Role]string{
	principals.RoleAdmin:   "admin",
	principals.RoleCurator: "curator",
}

// ValidationError describes a single, user-facing policy violation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("password validation failed: %s", e.Reason)
}

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	spaceRe   = regexp.MustCompile(`\s`)
	allowedRe = regexp.MustCompile(`^[a-zA-Z0-9` + allowedSymbols + `]+$`)
)

// Validate checks a candidate password against the policy and returns a
// *ValidationError naming the first violated rule.
func Validate(candidate string) error {
	switch {
	case candidate == "":
		return &ValidationError{Reason: "password cannot be empty"}
	case len(candidate) < MinLength:
		return &ValidationError{Reason: fmt.Sprintf("password must be at least %d characters", MinLength)}
	case len(candidate) > MaxLength:
		return &ValidationError{Reason: fmt.Sprintf("password must be at most %d characters", MaxLength)}
	case spaceRe.MatchString(candidate):
		return &ValidationError{Reason: "password cannot contain whitespace"}
	case !lowerRe.MatchString(candidate):
		return &ValidationError{Reason: "password must contain at least one lowercase letter"}
	case !upperRe.MatchString(candidate):
		return &ValidationError{Reason: "password must contain at least one uppercase letter"}
	case !digitRe.MatchString(candidate):
		return &ValidationError{Reason: "password must contain at least one digit"}
	case !allowedRe.MatchString(candidate):
		return &ValidationError{Reason: "password contains characters that are not allowed"}
	}
	return nil
}

// Hasher produces and checks salted bcrypt hashes. Cost is injected so
// tests can run with bcrypt.MinCost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a fresh salted hash; two calls with the same input never
// produce the same output.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes yield
// false, never an error.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
