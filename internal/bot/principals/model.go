package principals

// Role is the closed set of principal roles. Only curators and admins
// participate in authentication.
type Role string

const (
	RoleStudent Role = "student"
	RoleCurator Role = "curator"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a stored role string onto the closed set, defaulting
// to student for unknown or empty values.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleCurator:
		return RoleCurator
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Privileged reports whether the role is subject to authentication.
func (r Role) Privileged() bool {
	switch r {
	case RoleCurator, RoleAdmin:
		return true
	case RoleStudent:
		return false
	}
	return false
}

// HistoryDepth is the number of previous password hashes retained for
// reuse checks.
const HistoryDepth = 8

// Principal is a user capable of holding elevated access, together with
// its credential state.
type Principal struct {
	ID   int64
	Role Role

	// HashedPassword is the bcrypt hash of the current password, empty
	// when no password has been seeded yet.
	HashedPassword string

	// PasswordChanged is false while the principal is still on the
	// admin-assigned default password.
	PasswordChanged bool

	// PasswordHistory holds up to HistoryDepth previous hashes, newest
	// last.
	PasswordHistory []string

	TwoFAEnabled bool
	TwoFASecret  string

	// BackupCodes holds SHA-256 hex hashes of unused single-use recovery
	// codes.
	BackupCodes []string

	// LastAuthTime is the unix timestamp (seconds) of the last successful
	// authentication or activity refresh; 0 means no active session.
	LastAuthTime int64

	// Version is the optimistic-concurrency counter bumped by every
	// credential mutation.
	Version int64
}
