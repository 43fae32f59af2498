package pipeline

import (
	"errors"
	"fmt"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

// Kind classifies why a step failed.
type Kind string

const (
	// KindCollaborator marks a failure of an external collaborator such as
	// the fetcher or the language model.
	KindCollaborator Kind = "collaborator"
	// KindPersistence marks a checkpoint that could not be written or read.
	KindPersistence Kind = "persistence"
	// KindInternal marks a panic raised while a period was being processed.
	KindInternal Kind = "internal"
)

var (
	// ErrNoPeriods is returned when the input holds no archived snapshots.
	ErrNoPeriods = errors.New("no archived periods in input")
	// ErrAllPagesFailed reports a tagging step where no selected page could be read.
	ErrAllPagesFailed = errors.New("no selected page could be fetched")
	// ErrTaxonomyUnavailable reports that no taxonomy could be generated or loaded.
	ErrTaxonomyUnavailable = errors.New("taxonomy unavailable")
)

// StageError is the failure of one step. Period is empty for the run-wide
// taxonomy step.
type StageError struct {
	Period string
	Stage  checkpoint.Stage
	Kind   Kind
	Err    error
}

func (e *StageError) Error() string {
	if e.Period == "" {
		return fmt.Sprintf("%s %s failure: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("period %s: %s %s failure: %v", e.Period, e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func collaboratorError(period string, stage checkpoint.Stage, err error) *StageError {
	return &StageError{Period: period, Stage: stage, Kind: KindCollaborator, Err: err}
}

func persistenceError(period string, stage checkpoint.Stage, err error) *StageError {
	return &StageError{Period: period, Stage: stage, Kind: KindPersistence, Err: err}
}

func internalError(period string, stage checkpoint.Stage, recovered any) *StageError {
	return &StageError{Period: period, Stage: stage, Kind: KindInternal, Err: fmt.Errorf("panic: %v", recovered)}
}

// kindOf returns the kind of the StageError wrapped by err, or fallback.
func kindOf(err error, fallback Kind) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return fallback
}
