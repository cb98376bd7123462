package assistant

import (
	"errors"
	"fmt"
	"html"

	"github.com/BTreeMap/StudyPipe/internal/models"
)

// GenerationError wraps a failure reported by the model call.
type GenerationError struct {
	Operation models.Operation
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Operation, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one operation: the completion text, or the error
// that prevented it.
type Outcome struct {
	Operation models.Operation
	Prompt    string
	Text      string
	Err       error
}

// OK reports whether the model returned a completion.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Display returns the completion verbatim, or an HTML alert fragment that
// describes the failure.
func (o Outcome) Display() string {
	if o.Err == nil {
		return o.Text
	}
	label := "Error"
	if spec, ok := operationSpecs[o.Operation]; ok {
		label = spec.failure
	}
	cause := o.Err
	var genErr *GenerationError
	if errors.As(o.Err, &genErr) {
		cause = genErr.Err
	}
	return fmt.Sprintf("<div class='alert alert-danger'>%s: %s</div>", label, html.EscapeString(cause.Error()))
}

// Generation converts the outcome into a history record.
func (o Outcome) Generation() models.Generation {
	g := models.Generation{
		Operation: o.Operation,
		Prompt:    o.Prompt,
		Result:    o.Text,
		Status:    models.GenerationStatusOK,
	}
	if o.Err != nil {
		g.Status = models.GenerationStatusFailed
		g.Error = o.Err.Error()
	}
	return g
}
