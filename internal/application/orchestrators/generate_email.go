package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"leadmail/internal/adapters/generator"
	emailDomain "leadmail/internal/domain/email"
	"leadmail/internal/domain/lead"
)

// Content sources.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// DefaultBrand signs fallback copy when no brand is configured.
const DefaultBrand = "ECMP"

// Generation failures that select the fallback template.
var (
	ErrNoGenerator    = errors.New("no generator configured")
	ErrNoJSONObject   = errors.New("no JSON object in model output")
	ErrUnexpectedKeys = errors.New("model output must have exactly subject, text and html")
	ErrNonStringField = errors.New("model output fields must be strings")
	ErrEmptySubject   = errors.New("model output has an empty subject")
)

// GeneratedContent is the email copy for one lead and where it came from.
// INVARIANT: FallbackReason is set iff Source == SourceFallback
type GeneratedContent struct {
	Subject        string `json:"subject"`
	Text           string `json:"text"`
	HTML           string `json:"html"`
	Source         string `json:"source"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// IsFallback reports whether the deterministic template was used.
func (c GeneratedContent) IsFallback() bool {
	return c.Source == SourceFallback
}

// GenerateEmailInput carries the lead fields handed to the generator.
type GenerateEmailInput struct {
	Fields map[string]string
}

// GenerateEmailDeps holds dependencies for content generation.
type GenerateEmailDeps struct {
	Generator generator.Generator // nil always falls back
	Brand     string
}

// ExecuteGenerateEmail asks the generator for copy and falls back to a fixed template
// when the call fails or its output is not the expected JSON object.
// PRE: none
// POST: Always returns content; collaborator failures are reported through Source/FallbackReason
func ExecuteGenerateEmail(ctx context.Context, input GenerateEmailInput, deps GenerateEmailDeps) GeneratedContent {
	brand := deps.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	if deps.Generator == nil {
		return fallbackContent(input.Fields, brand, ErrNoGenerator)
	}

	raw, err := deps.Generator.Generate(ctx, input.Fields)
	if err != nil {
		slog.Warn("generate_failed", "error", err)
		return fallbackContent(input.Fields, brand, err)
	}
	content, err := ParseGeneratedContent(raw)
	if err != nil {
		slog.Warn("generate_unparseable", "error", err, "chars", len(raw))
		return fallbackContent(input.Fields, brand, err)
	}
	return content
}

// ParseGeneratedContent extracts the outermost {...} span from raw model text and
// decodes it as {"subject","text","html"}.
// PRE: none
// POST: Returns Source=generated content or one of the generation errors
func ParseGeneratedContent(raw string) (GeneratedContent, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return GeneratedContent{}, ErrNoJSONObject
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return GeneratedContent{}, fmt.Errorf("decode model output: %w", err)
	}
	if len(obj) != 3 {
		return GeneratedContent{}, ErrUnexpectedKeys
	}
	fields := make(map[string]string, 3)
	for _, k := range []string{"subject", "text", "html"} {
		v, ok := obj[k]
		if !ok {
			return GeneratedContent{}, ErrUnexpectedKeys
		}
		s, ok := v.(string)
		if !ok {
			return GeneratedContent{}, fmt.Errorf("%w: %s", ErrNonStringField, k)
		}
		fields[k] = s
	}
	if strings.TrimSpace(fields["subject"]) == "" {
		return GeneratedContent{}, ErrEmptySubject
	}
	return GeneratedContent{
		Subject: fields["subject"],
		Text:    fields["text"],
		HTML:    fields["html"],
		Source:  SourceGenerated,
	}, nil
}

// fallbackContent renders the deterministic offer from name and company only.
func fallbackContent(fields map[string]string, brand string, reason error) GeneratedContent {
	name := strings.TrimSpace(fields["name"])
	if name == "" {
		name = "there"
	}
	company := strings.TrimSpace(fields["company"])
	if company == "" {
		company = "your company"
	}
	const offer = "We would like to offer you our email campaign management services."
	return GeneratedContent{
		Subject: "Special offer for " + company,
		Text:    fmt.Sprintf("Hello %s,\n\n%s\n\nBest regards,\n%s Team", name, offer, brand),
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>%s</p><p>Best regards,<br>%s Team</p>",
			html.EscapeString(name), offer, html.EscapeString(brand)),
		Source:         SourceFallback,
		FallbackReason: reason.Error(),
	}
}

// GenerateMessagesInput carries the imported records to write copy for.
type GenerateMessagesInput struct {
	Records []lead.Record
}

// GenerateMessagesResult pairs each addressed message with the content it was built from.
// INVARIANT: len(Messages) == len(Contents)
type GenerateMessagesResult struct {
	Messages  []emailDomain.Message       `json:"messages"`
	Contents  []GeneratedContent          `json:"contents"`
	Skipped   []emailDomain.SkippedRecord `json:"skipped,omitempty"`
	Fallbacks int                         `json:"fallbacks"`
}

// ExecuteGenerateMessages generates copy for every addressable record, one at a time.
// PRE: none
// POST: Returns one message per record with an email field, in record order; each is
//
//	generated or fallback independently. Returns ctx.Err() if ctx is done before a record.
func ExecuteGenerateMessages(ctx context.Context, input GenerateMessagesInput, deps GenerateEmailDeps) (GenerateMessagesResult, error) {
	res := GenerateMessagesResult{
		Messages: make([]emailDomain.Message, 0, len(input.Records)),
		Contents: make([]GeneratedContent, 0, len(input.Records)),
	}
	for i, rec := range input.Records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, recipient, ok := rec.EmailField()
		if !ok {
			res.Skipped = append(res.Skipped, emailDomain.SkippedRecord{Index: i, Reason: emailDomain.ReasonNoEmailField})
			continue
		}
		content := ExecuteGenerateEmail(ctx, GenerateEmailInput{Fields: rec.Fields()}, deps)
		if content.IsFallback() {
			res.Fallbacks++
		}
		res.Contents = append(res.Contents, content)
		res.Messages = append(res.Messages, emailDomain.Message{
			Recipient: strings.TrimSpace(recipient),
			Subject:   content.Subject,
			Text:      content.Text,
			HTML:      content.HTML,
			Tags:      map[string]string{"source": content.Source},
		})
	}
	slog.Info("generate_complete", "records", len(input.Records), "messages", len(res.Messages), "fallbacks", res.Fallbacks)
	return res, nil
}
