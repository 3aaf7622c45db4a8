package engine

import (
	"errors"
	"fmt"

	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/provider"
)

// ErrExhaustedFallbacks marks a chain where every candidate failed. Match
// with errors.Is.
var ErrExhaustedFallbacks = errors.New("all candidate models failed")

// Attempt summarizes one failed chain entry by error kind only. Raw upstream
// diagnostics stay in the logs and are never carried here.
type Attempt struct {
	Provider string
	Model    string
	Kind     provider.Kind
}

// ExhaustedError reports a fully failed fallback chain.
type ExhaustedError struct {
	Purpose  models.Purpose
	Attempts []Attempt
	LastKind provider.Kind
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("purpose %q: %d candidate(s) failed, last error %s", e.Purpose, len(e.Attempts), e.LastKind)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhaustedFallbacks
}
