package appointment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidReport     = errors.New("completion report requires diagnosis and treatment")
)

// transitions is the full lifecycle table. completed and cancelled are
// terminal.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusBooked:    true,
		StatusCancelled: true,
	},
	StatusBooked: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether from→to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// CheckTransition returns ErrInvalidTransition naming both statuses when the
// step is off the table.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateReport enforces the completion report contract: diagnosis and
// treatment must both be non-blank.
func ValidateReport(report CompletionReport) error {
	if strings.TrimSpace(report.Diagnosis) == "" || strings.TrimSpace(report.Treatment) == "" {
		return ErrInvalidReport
	}
	return nil
}
