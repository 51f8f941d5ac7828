package build

// State is the lifecycle state of a build.
type State int

const (
	StateIdle State = iota
	StateValidating
	StatePreprocessing
	StateCompiling
	StatePostprocessing
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateValidating:     "validating",
	StatePreprocessing:  "preprocessing",
	StateCompiling:      "compiling",
	StatePostprocessing: "postprocessing",
	StateDone:           "done",
	StateFailed:         "failed",
}

// String returns the lower-case state name, also used as the stage name in
// errors, logs and metrics.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a build.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
