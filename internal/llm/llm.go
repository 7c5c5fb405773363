// Package llm adapts chat-completion providers to a single call that returns
// one JSON object, and isolates the text-to-JSON extraction heuristic.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zulandar/cockpit/internal/telemetry"
)

// Request shape shared by every provider.
const (
	Temperature = 0.25
	MaxTokens   = 1200
)

var (
	// ErrDisabled is returned when no model is configured.
	ErrDisabled = errors.New("llm: disabled")
	// ErrNoJSON is returned when a completion holds no parseable JSON object.
	ErrNoJSON = errors.New("llm: no JSON object in completion")
	// ErrEmpty is returned when a provider answers without text.
	ErrEmpty = errors.New("llm: empty completion")
)

// Client sends one system and one user message and returns the raw text reply.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New builds a client for cfg.Provider. An empty API key yields ErrDisabled.
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// GenerateStructured calls c and extracts the first JSON object from the
// reply. The caller's context bounds the call.
func GenerateStructured(ctx context.Context, c Client, system, user string) (gjson.Result, error) {
	if c == nil {
		return gjson.Result{}, ErrDisabled
	}
	ctx, span := telemetry.Tracer("github.com/zulandar/cockpit/llm").Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(attribute.String("cockpit.llm.model", c.Model()))

	t0 := time.Now()
	text, err := c.Complete(ctx, system, user)
	span.SetAttributes(attribute.Int64("cockpit.llm.duration_ms", time.Since(t0).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return gjson.Result{}, err
	}
	doc, err := ExtractJSON(text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return gjson.Result{}, err
	}
	return doc, nil
}

// ExtractJSON finds a JSON object in free-form model output. Code fences are
// dropped; if the remainder is not itself an object, the first balanced
// {...} span that parses is used.
func ExtractJSON(raw string) (gjson.Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return gjson.Result{}, ErrNoJSON
	}
	text = stripFences(text)
	if gjson.Valid(text) {
		if doc := gjson.Parse(text); doc.IsObject() {
			return doc, nil
		}
	}
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end >= 0 {
			candidate := text[start : end+1]
			if gjson.Valid(candidate) {
				return gjson.Parse(candidate), nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return gjson.Result{}, ErrNoJSON
}

func stripFences(s string) string {
	for _, fence := range []string{"```json", "```JSON", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside string literals are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
