package auth

// User-facing prompt texts. Invalid-credential messages are deliberately
// vague; validation messages carry the specific reason.
const (
	msgAuthRequired = "Authentication required.\n\nPlease enter your password (or /cancel):"

	msgSessionExpired = "Session expired. Enter your password to sign in again:"

	msgInvalidCredential = "Invalid credentials. Try again or send /cancel."

	msgEnterSecondFactor = "Password accepted.\n\nEnter the 6-digit code from your authenticator app, or one of your backup codes:"

	msgInvalidCode = "Invalid code. Try again or send /cancel."

	msgMustChangeDefault = "Password accepted.\n\nYou must replace the default password before using any privileged function.\n\nEnter a new password (8-128 characters, upper and lower case letters, digits, no spaces):"

	msgConfirmNewPassword = "Confirm the new password (enter it once more):"

	msgConfirmMismatch = "Passwords do not match. Enter the new password again:"

	msgAuthenticated = "Authentication successful."

	msgBackupCodeUsed = "Warning: you signed in with a backup code. Remaining codes: %d. Consider re-enrolling two-factor authentication if you are running low."

	msgPasswordChanged = "Password changed successfully."

	msgEnterCurrentPassword = "Enter your current password (or /cancel):"

	msgEnterNewPassword = "Enter a new password (8-128 characters, upper and lower case letters, digits, no spaces):"

	msgChangeNeedsCode = "Two-factor authentication is enabled.\n\nEnter the 6-digit code from your authenticator app or a backup code to confirm the password change:"

	msgEnrollCaption = "Two-factor setup\n\n1. Open your authenticator app\n2. Scan the QR code above\n3. Enter the 6-digit code from the app\n\nManual entry key:\n%s\n\nThis message will be deleted in %d seconds for security."

	msgEnrollEnterCode = "Enter the 6-digit code from the app (or /cancel):"

	msgEnrolled = "Two-factor authentication enabled.\n\nBackup codes (shown once, save them now):\n\n%s\n\nEach code works exactly once. Without them, losing your authenticator means losing access. This message will be deleted in %d seconds."

	msgAlreadyEnrolled = "Two-factor authentication is already enabled. Disable it first to re-enroll."

	msgNotEnrolled = "Two-factor authentication is not enabled."

	msgDisableNeedsPassword = "Disabling two-factor authentication requires confirmation.\n\nEnter your password (or /cancel):"

	msgDisableEnterCode = "Password accepted.\n\nEnter the current 6-digit code from your authenticator app, or one of your backup codes:"

	msgDisabled = "Two-factor authentication disabled. You can re-enable it at any time."

	msgTwoFactorCorrupt = "Two-factor data is unavailable. Contact an administrator."

	msgStoreFailure = "Something went wrong while saving. Please try again."

	msgCancelled = "Cancelled."
)
