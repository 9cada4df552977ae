package blend

import (
	"errors"
	"fmt"

	"github.com/perfumepal/blender/internal/services/extract"
)

// Stage names as they appear in error messages.
const (
	StagePlanner    = "Scent Planner"
	StageFormulator = "Formula Architect"
	StageWorkflow   = "Workflow"
)

// ErrNotObject is returned when a stage answers with JSON that is not an object.
var ErrNotObject = errors.New("response is not a JSON object")

// WorkflowError is the single failure kind returned by a pipeline run.
type WorkflowError struct {
	Stage string
	Err   error
}

func (e *WorkflowError) Error() string {
	if e.IsParseError() {
		return fmt.Sprintf("%s returned invalid JSON: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether the model answered with text that held no usable JSON.
func (e *WorkflowError) IsParseError() bool {
	var pe *extract.ParseError
	return errors.As(e.Err, &pe)
}

func stageError(stage string, err error) *WorkflowError {
	return &WorkflowError{Stage: stage, Err: err}
}
