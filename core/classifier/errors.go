package classifier

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrModelUnavailable is returned when no model artifact could be found or loaded.
// It only disables predictions; the rest of the service keeps working.
var ErrModelUnavailable = errors.New("prediction model unavailable")

// PredictionError is returned when the loaded model fails during inference.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return "prediction failed: " + e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// SchemaMismatchError is returned when a dataset lacks required columns.
type SchemaMismatchError struct {
	Missing   []string
	Available []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("dataset is missing required columns: %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// ArtifactMismatchError is returned when an artifact does not declare the feature contract of this build.
type ArtifactMismatchError struct {
	Reason string
}

func (e *ArtifactMismatchError) Error() string { return "incompatible model artifact: " + e.Reason }
