// Package models defines the core data structures for StudyPipe.
//
// It includes the request payloads for each study operation, generation
// history records, and the JSON envelope shared by every API response.
package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Operation names one of the caller-facing study actions.
type Operation string

const (
	// OperationStudyGuide creates a study guide for a topic.
	OperationStudyGuide Operation = "study_guide"
	// OperationPracticeQuestions generates practice questions for a topic.
	OperationPracticeQuestions Operation = "practice_questions"
	// OperationExplainTopic explains a topic at a difficulty level.
	OperationExplainTopic Operation = "explain_topic"
	// OperationSummarizeText summarizes supplied text.
	OperationSummarizeText Operation = "summarize_text"
	// OperationAssignment drafts a custom assignment.
	OperationAssignment Operation = "assignment"
)

// Operations lists every supported operation in menu order.
var Operations = []Operation{
	OperationStudyGuide,
	OperationPracticeQuestions,
	OperationExplainTopic,
	OperationSummarizeText,
	OperationAssignment,
}

// TemplateName returns the prompt template an operation renders.
func (o Operation) TemplateName() string {
	return string(o) + "_prompt"
}

// IsValidOperation checks if the given operation is supported.
func IsValidOperation(o Operation) bool {
	for _, known := range Operations {
		if o == known {
			return true
		}
	}
	return false
}

// validate reports JSON field names so errors match what clients send.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// StudyGuideRequest is the payload for POST /create_guide.
type StudyGuideRequest struct {
	Topic      string `json:"topic" validate:"required"`
	Level      string `json:"level,omitempty"`
	FocusAreas string `json:"focus_areas,omitempty"`
}

// PracticeQuestionsRequest is the payload for POST /generate_questions.
// At most 50 questions may be requested.
type PracticeQuestionsRequest struct {
	Topic         string   `json:"topic" validate:"required"`
	NumQuestions  int      `json:"num_questions,omitempty" validate:"gte=0,lte=50"`
	QuestionTypes []string `json:"question_types,omitempty" validate:"dive,required"`
}

// ExplainTopicRequest is the payload for POST /explain_topic.
type ExplainTopicRequest struct {
	Topic           string `json:"topic" validate:"required"`
	DifficultyLevel string `json:"difficulty_level,omitempty"`
}

// SummarizeTextRequest is the payload for POST /summarize_text. Text and
// reference content are capped at 100000 characters.
type SummarizeTextRequest struct {
	Text        string `json:"text" validate:"required,max=100000"`
	SummaryType string `json:"summary_type,omitempty"`
}

// AssignmentRequest is the payload for POST /generate_assignment.
type AssignmentRequest struct {
	AssignmentName   string `json:"assignment_name" validate:"required"`
	Details          string `json:"details" validate:"required"`
	OutputFormat     string `json:"output_format,omitempty"`
	WordCount        string `json:"word_count,omitempty"`
	ReferenceContent string `json:"reference_content,omitempty" validate:"max=100000"`
}

// Validate checks a request payload against its struct tags and returns an
// error naming the first offending JSON field.
func Validate(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	// dive errors carry an index suffix, e.g. question_types[1]
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "lte", "max":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "gte", "min":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// GenerationStatus records whether a generation produced model output.
type GenerationStatus string

const (
	// GenerationStatusOK indicates the model returned a completion.
	GenerationStatusOK GenerationStatus = "ok"
	// GenerationStatusFailed indicates rendering or the model call failed.
	GenerationStatusFailed GenerationStatus = "failed"
)

// Generation is one recorded prompt/response exchange.
type Generation struct {
	ID        string           `json:"id"`
	Operation Operation        `json:"operation"`
	Prompt    string           `json:"prompt"`
	Result    string           `json:"result,omitempty"`
	Status    GenerationStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
