package core

// Action represents the result of a node execution that determines flow control.
type Action string

// Common actions used throughout the framework.
const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionDefault  Action = "default"

	// Agent controller routing actions (PLAN → DISPATCH → ASSESS → ANSWER → GUARD).
	ActionDispatch Action = "dispatch"
	ActionReplan   Action = "replan"
	ActionAnswer   Action = "answer"
	ActionGuard    Action = "guard"
)
