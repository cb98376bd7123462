package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_AllPlaceholdersSupplied(t *testing.T) {
	g, err := NewGenerator(map[string]string{
		"guide": "Topic: {topic} at {level} ({topic})",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Render("guide", Params{"topic": "Algebra", "level": "beginner"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Topic: Algebra at beginner (Algebra)" {
		t.Errorf("unexpected render output: %q", out)
	}
	if strings.ContainsAny(out, "{}") {
		t.Errorf("rendered text still contains placeholder markers: %q", out)
	}
}

func TestRender_EscapedBraces(t *testing.T) {
	g, err := NewGenerator(map[string]string{"json": `{{"topic": "{topic}"}}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Render("json", Params{"topic": "Sets"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"topic": "Sets"}` {
		t.Errorf("unexpected render output: %q", out)
	}
}

func TestRender_ValuesAreNotReinterpreted(t *testing.T) {
	g, err := NewGenerator(map[string]string{"t": "[{text}]"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Render("t", Params{"text": "{level} and }}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[{level} and }}]" {
		t.Errorf("expected value to be inserted verbatim, got %q", out)
	}
}

func TestRender_ParameterMissing(t *testing.T) {
	g, err := NewGenerator(map[string]string{"guide": "{topic} {level}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = g.Render("guide", Params{"topic": "Algebra"})
	if !errors.Is(err, ErrParameterMissing) {
		t.Fatalf("expected ErrParameterMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "level") {
		t.Errorf("expected error to name the missing placeholder, got %v", err)
	}
}

func TestRender_TemplateMissing(t *testing.T) {
	g, err := NewGenerator(map[string]string{"guide": "{topic}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Render("nope", Params{"topic": "x"}); !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("expected ErrTemplateMissing, got %v", err)
	}
}

func TestNewGenerator_MalformedTemplates(t *testing.T) {
	cases := map[string]string{
		"unclosed":     "hello {topic",
		"empty":        "hello {}",
		"stray close":  "hello } there",
		"nested open":  "hello {to{pic}",
		"blank inside": "hello {  }",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewGenerator(map[string]string{"t": text})
			if !errors.Is(err, ErrMalformedTemplate) {
				t.Errorf("expected ErrMalformedTemplate for %q, got %v", text, err)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	g, err := NewGenerator(map[string]string{"t": "{b} {a} {b} {{c}}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names, err := g.Placeholders("t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}
	if _, err := g.Placeholders("missing"); !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("expected ErrTemplateMissing, got %v", err)
	}
}

func TestRequire(t *testing.T) {
	g, err := NewGenerator(map[string]string{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Require("a", "b"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	err = g.Require("a", "c", "d")
	if !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "c, d") {
		t.Errorf("expected error to list missing names, got %v", err)
	}
}

func TestLoadDefault(t *testing.T) {
	g, err := LoadDefault()
	if err != nil {
		t.Fatalf("unexpected error loading built-in templates: %v", err)
	}
	required := []string{
		"system_prompt",
		"study_guide_prompt",
		"practice_questions_prompt",
		"explain_topic_prompt",
		"summarize_text_prompt",
		"assignment_prompt",
	}
	if err := g.Require(required...); err != nil {
		t.Errorf("built-in templates incomplete: %v", err)
	}
}

func TestLoadFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(yamlPath, []byte("greet: |\n  Hello {name}\n"), 0644); err != nil {
		t.Fatalf("failed to write yaml fixture: %v", err)
	}
	g, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error loading yaml: %v", err)
	}
	out, err := g.Render("greet", Params{"name": "Ada"})
	if err != nil || out != "Hello Ada\n" {
		t.Errorf("unexpected yaml render: %q, %v", out, err)
	}

	jsonPath := filepath.Join(dir, "prompts.json")
	if err := os.WriteFile(jsonPath, []byte(`{"greet": "Hi {name}"}`), 0644); err != nil {
		t.Fatalf("failed to write json fixture: %v", err)
	}
	g, err = LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error loading json: %v", err)
	}
	out, err = g.Render("greet", Params{"name": "Ada"})
	if err != nil || out != "Hi Ada" {
		t.Errorf("unexpected json render: %q, %v", out, err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing resource, got nil")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadFile(empty); !errors.Is(err, ErrEmptyTemplateSet) {
		t.Errorf("expected ErrEmptyTemplateSet, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"t": "oops {"}`), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadFile(bad); !errors.Is(err, ErrMalformedTemplate) {
		t.Errorf("expected ErrMalformedTemplate, got %v", err)
	}
}
