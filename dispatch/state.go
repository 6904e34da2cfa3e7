package dispatch

// State is a step of a call.
type State uint8

const (
	StateResolveMethod State = iota
	StateMarshalIndependentIn
	StateMarshalDependentIn
	StateInvoke
	StateMarshalOut
	StateCleanup
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateResolveMethod:        "resolve-method",
	StateMarshalIndependentIn: "marshal-independent-in",
	StateMarshalDependentIn:   "marshal-dependent-in",
	StateInvoke:               "invoke",
	StateMarshalOut:           "marshal-out",
	StateCleanup:              "cleanup",
	StateDone:                 "done",
	StateFailed:               "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
