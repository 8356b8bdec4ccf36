package delivery

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle of a delivery job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusInjected   Status = "injected"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusInjected,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts the text form of a status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown job status %q", value)
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusInjected, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusInjected, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	}
	return false
}

// CanTransition reports whether a job in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusInjected || next == StatusFailed
	case StatusProcessing:
		return next == StatusInjected || next == StatusFailed
	case StatusInjected, StatusFailed:
		return false
	}
	return false
}

func (s Status) String() string { return string(s) }

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
