// Package prompt renders named prompt templates for StudyPipe.
//
// Templates use {name} placeholders; {{ and }} produce literal braces. Every
// template is compiled when the set is built, so a malformed template is a
// startup error and never a per-request one.
package prompt

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

var (
	// ErrTemplateMissing is returned when a template name is not in the set.
	ErrTemplateMissing = errors.New("template missing")
	// ErrParameterMissing is returned when a placeholder has no value.
	ErrParameterMissing = errors.New("parameter missing")
	// ErrMalformedTemplate is returned when a template cannot be compiled.
	ErrMalformedTemplate = errors.New("malformed template")
)

// Params maps placeholder names to their substitution values.
type Params map[string]string

type segment struct {
	text        string
	placeholder bool
}

type template struct {
	segments []segment
	names    []string
}

// Generator holds an immutable set of compiled templates.
// It is safe for concurrent use.
type Generator struct {
	templates map[string]template
}

// NewGenerator compiles every template in raw. The map is copied; later
// changes to raw are not observed.
func NewGenerator(raw map[string]string) (*Generator, error) {
	g := &Generator{templates: make(map[string]template, len(raw))}
	for name, text := range raw {
		t, err := compile(text)
		if err != nil {
			slog.Error("prompt.NewGenerator: template failed to compile", "template", name, "error", err)
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		g.templates[name] = t
	}
	slog.Debug("prompt.NewGenerator: templates compiled", "count", len(g.templates))
	return g, nil
}

// Render substitutes params into the named template.
func (g *Generator) Render(name string, params Params) (string, error) {
	t, ok := g.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateMissing, name)
	}
	var b strings.Builder
	for _, seg := range t.segments {
		if !seg.placeholder {
			b.WriteString(seg.text)
			continue
		}
		v, ok := params[seg.text]
		if !ok {
			return "", fmt.Errorf("%w: %q in template %q", ErrParameterMissing, seg.text, name)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Placeholders returns the distinct placeholder names of a template, sorted.
func (g *Generator) Placeholders(name string) ([]string, error) {
	t, ok := g.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateMissing, name)
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out, nil
}

// Require fails if any of the given template names is absent.
func (g *Generator) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := g.templates[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrTemplateMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Names returns the loaded template names, sorted.
func (g *Generator) Names() []string {
	names := make([]string, 0, len(g.templates))
	for n := range g.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// compile splits text into literal and placeholder segments.
func compile(text string) (template, error) {
	var (
		t    template
		lit  strings.Builder
		seen = map[string]bool{}
	)
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(text[i+1:], "{}")
			if end < 0 || text[i+1+end] != '}' {
				return template{}, fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := text[i+1 : i+1+end]
			if strings.TrimSpace(name) == "" {
				return template{}, fmt.Errorf("%w: empty placeholder at offset %d", ErrMalformedTemplate, i)
			}
			flush()
			t.segments = append(t.segments, segment{text: name, placeholder: true})
			if !seen[name] {
				seen[name] = true
				t.names = append(t.names, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return template{}, fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	sort.Strings(t.names)
	return t, nil
}
