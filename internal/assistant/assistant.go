// Package assistant composes prompt rendering and model completion into the
// five study operations StudyPipe exposes.
//
// Internal callers use Run, which returns a typed Outcome. The caller-facing
// methods (StudyGuide, PracticeQuestions, Explanation, Summary, Assignment)
// always return a string: the completion on success, or an HTML error
// fragment describing the failure.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/StudyPipe/internal/models"
	"github.com/BTreeMap/StudyPipe/internal/prompt"
)

// Defaults substituted for optional parameters left empty by the caller.
const (
	DefaultLevel            = "intermediate"
	DefaultFocusAreas       = "comprehensive coverage"
	DefaultQuestionCount    = 5
	DefaultDifficultyLevel  = "beginner"
	DefaultSummaryType      = "comprehensive"
	DefaultOutputFormat     = "Report"
	DefaultWordCount        = "No specific length requirement"
	DefaultReferenceContent = "No reference files provided"
)

// DefaultQuestionTypes is used when no question types are requested.
var DefaultQuestionTypes = []string{"multiple_choice", "true_false", "short_answer"}

var (
	// ErrConfiguration marks a construction failure that makes the assistant unusable.
	ErrConfiguration = errors.New("assistant configuration error")
	// ErrUnknownOperation is returned in the Outcome of Run for an unsupported operation.
	ErrUnknownOperation = errors.New("unknown operation")
)

// Completer issues one prompt to a language model.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Renderer turns a named template and parameters into prompt text.
type Renderer interface {
	Render(name string, params prompt.Params) (string, error)
	Placeholders(name string) ([]string, error)
	Require(names ...string) error
}

// Recorder persists generation history.
type Recorder interface {
	AddGeneration(g models.Generation) error
}

// operationSpec describes the parameters an operation always supplies and
// the label used in its error fragment.
type operationSpec struct {
	params  []string
	failure string
}

var operationSpecs = map[models.Operation]operationSpec{
	models.OperationStudyGuide: {
		params:  []string{"topic", "level", "focus_areas"},
		failure: "Error creating study guide",
	},
	models.OperationPracticeQuestions: {
		params:  []string{"topic", "num_questions", "question_types"},
		failure: "Error generating practice questions",
	},
	models.OperationExplainTopic: {
		params:  []string{"topic", "difficulty_level"},
		failure: "Error explaining topic",
	},
	models.OperationSummarizeText: {
		params:  []string{"text", "summary_type"},
		failure: "Error summarizing text",
	},
	models.OperationAssignment: {
		params:  []string{"assignment_name", "details", "output_format", "word_count", "reference_content"},
		failure: "Error generating assignment",
	},
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRecorder stores every Outcome in r. Recording failures are logged and
// never change what callers receive.
func WithRecorder(r Recorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// Assistant runs study operations. It holds only read-only state and is safe
// for concurrent use.
type Assistant struct {
	renderer  Renderer
	completer Completer
	recorder  Recorder
}

// New builds an Assistant and checks that every operation's template exists
// and references only parameters that operation supplies.
func New(renderer Renderer, completer Completer, opts ...Option) (*Assistant, error) {
	if renderer == nil {
		return nil, fmt.Errorf("%w: renderer is nil", ErrConfiguration)
	}
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is nil", ErrConfiguration)
	}
	required := make([]string, 0, len(models.Operations))
	for _, op := range models.Operations {
		required = append(required, op.TemplateName())
	}
	if err := renderer.Require(required...); err != nil {
		slog.Error("assistant.New: templates missing", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	for _, op := range models.Operations {
		if err := checkTemplate(renderer, op); err != nil {
			slog.Error("assistant.New: template check failed", "operation", op, "error", err)
			return nil, err
		}
	}
	a := &Assistant{renderer: renderer, completer: completer}
	for _, opt := range opts {
		opt(a)
	}
	slog.Debug("assistant.New: assistant ready", "operations", len(models.Operations), "recording", a.recorder != nil)
	return a, nil
}

func checkTemplate(r Renderer, op models.Operation) error {
	names, err := r.Placeholders(op.TemplateName())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	supplied := make(map[string]bool, len(operationSpecs[op].params))
	for _, p := range operationSpecs[op].params {
		supplied[p] = true
	}
	for _, n := range names {
		if !supplied[n] {
			return fmt.Errorf("%w: %w: template %q references %q, which %s does not supply",
				ErrConfiguration, prompt.ErrParameterMissing, op.TemplateName(), n, op)
		}
	}
	return nil
}

// Run renders the operation's template with params and sends the prompt to
// the model. It never panics on model failure; the failure is in the Outcome.
func (a *Assistant) Run(ctx context.Context, op models.Operation, params prompt.Params) Outcome {
	out := Outcome{Operation: op}
	if !models.IsValidOperation(op) {
		slog.Error("Assistant.Run: unknown operation", "operation", op)
		out.Err = fmt.Errorf("%w: %q", ErrUnknownOperation, op)
		a.record(out)
		return out
	}
	text, err := a.renderer.Render(op.TemplateName(), params)
	if err != nil {
		slog.Error("Assistant.Run: failed to render prompt", "operation", op, "error", err)
		out.Err = err
		a.record(out)
		return out
	}
	out.Prompt = text

	start := time.Now()
	result, err := a.completer.Generate(ctx, text)
	if err != nil {
		slog.Warn("Assistant.Run: generation failed", "operation", op, "error", err, "elapsed", time.Since(start))
		out.Err = &GenerationError{Operation: op, Err: err}
		a.record(out)
		return out
	}
	out.Text = result
	slog.Info("Assistant.Run: generation succeeded", "operation", op, "response_len", len(result), "elapsed", time.Since(start))
	a.record(out)
	return out
}

func (a *Assistant) record(out Outcome) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.AddGeneration(out.Generation()); err != nil {
		slog.Warn("Assistant.record: failed to store generation", "operation", out.Operation, "error", err)
	}
}

// StudyGuide creates a study guide for topic. Empty level and focusAreas take
// their defaults.
func (a *Assistant) StudyGuide(ctx context.Context, topic, level, focusAreas string) string {
	return a.Run(ctx, models.OperationStudyGuide, prompt.Params{
		"topic":       topic,
		"level":       orDefault(level, DefaultLevel),
		"focus_areas": orDefault(focusAreas, DefaultFocusAreas),
	}).Display()
}

// PracticeQuestions generates count questions of the given types. A
// non-positive count and an empty type list take their defaults.
func (a *Assistant) PracticeQuestions(ctx context.Context, topic string, count int, types []string) string {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	if len(types) == 0 {
		types = DefaultQuestionTypes
	}
	return a.Run(ctx, models.OperationPracticeQuestions, prompt.Params{
		"topic":          topic,
		"num_questions":  strconv.Itoa(count),
		"question_types": strings.Join(types, ", "),
	}).Display()
}

// Explanation explains topic at difficulty.
func (a *Assistant) Explanation(ctx context.Context, topic, difficulty string) string {
	return a.Run(ctx, models.OperationExplainTopic, prompt.Params{
		"topic":            topic,
		"difficulty_level": orDefault(difficulty, DefaultDifficultyLevel),
	}).Display()
}

// Summary summarizes text.
func (a *Assistant) Summary(ctx context.Context, text, summaryType string) string {
	return a.Run(ctx, models.OperationSummarizeText, prompt.Params{
		"text":         text,
		"summary_type": orDefault(summaryType, DefaultSummaryType),
	}).Display()
}

// Assignment drafts an assignment from its name and details.
func (a *Assistant) Assignment(ctx context.Context, name, details, format, wordCount, referenceContent string) string {
	return a.Run(ctx, models.OperationAssignment, prompt.Params{
		"assignment_name":   name,
		"details":           details,
		"output_format":     orDefault(format, DefaultOutputFormat),
		"word_count":        orDefault(wordCount, DefaultWordCount),
		"reference_content": orDefault(referenceContent, DefaultReferenceContent),
	}).Display()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
