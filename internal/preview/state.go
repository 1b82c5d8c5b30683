package preview

// State is a position in the preview flow.
type State int

const (
	StateLive State = iota
	StatePreviewRequested
	StatePreviewActive
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StatePreviewRequested:
		return "preview_requested"
	case StatePreviewActive:
		return "preview_active"
	default:
		return "unknown"
	}
}

// Transition outcomes, also used as metric labels.
const (
	OutcomeOK         = "ok"
	OutcomeInvalidKey = "invalid_key"
	OutcomeUnresolved = "unresolved"
)

// Transition records one step of the flow.
type Transition struct {
	From    State
	To      State
	Outcome string
}
