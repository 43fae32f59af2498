package pipeline

import "fmt"

// PeriodState is the furthest step a period has completed.
type PeriodState int

// States in the order a period moves through them.
const (
	NotStarted PeriodState = iota
	LinksDiscovered
	Classified
	Selected
	ScenariosTagged
	Done
)

var stateNames = [...]string{
	NotStarted:      "not_started",
	LinksDiscovered: "links_discovered",
	Classified:      "classified",
	Selected:        "selected",
	ScenariosTagged: "scenarios_tagged",
	Done:            "done",
}

func (s PeriodState) String() string {
	if s < NotStarted || s > Done {
		return fmt.Sprintf("PeriodState(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s PeriodState) MarshalText() ([]byte, error) {
	if s < NotStarted || s > Done {
		return nil, fmt.Errorf("invalid period state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name.
func (s *PeriodState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = PeriodState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown period state %q", text)
}
