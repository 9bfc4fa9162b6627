package auth

// flowKind distinguishes the four conversational flows the orchestrator
// runs. Exactly one flow is pending per principal at any time; starting
// a new flow overwrites a stale one.
type flowKind int

const (
	flowLogin flowKind = iota
	flowChangePassword
	flowEnroll
	flowDisable
)

// step is the current state within a flow.
type step int

const (
	stepPassword step = iota
	stepTwoFactorCode
	stepNewPassword
	stepConfirmPassword
	stepCurrentPassword
	stepInitialCode
	stepDisablePassword
	stepDisableCode
)

// flow holds the in-flight state of one principal's conversation.
// pendingPassword and pendingSecret live only here until the flow
// commits; cancellation drops them without any credential mutation.
type flow struct {
	kind flowKind
	step step

	pendingPassword string
	pendingSecret   string
	usedBackup      bool
}
