package email

import (
	"strings"

	"leadmail/internal/domain/lead"
)

// SkippedRecord is a record Merge could not address.
type SkippedRecord struct {
	Index  int    `json:"index"` // position in the input records
	Reason string `json:"reason"`
}

// MergeResult holds the addressed messages and the records that were skipped.
type MergeResult struct {
	Messages []Message       `json:"messages"`
	Skipped  []SkippedRecord `json:"skipped,omitempty"`
}

// ReasonNoEmailField is recorded for records without a usable email field.
const ReasonNoEmailField = "no email field"

// Merge renders tpl once per record.
// PRE: none
// POST: Returns ErrTemplateMissingSubject/ErrTemplateMissingBody for a bad template;
//
//	otherwise one message per record with a non-empty email field, in input order.
func Merge(records []lead.Record, tpl Template) (MergeResult, error) {
	if err := tpl.Validate(); err != nil {
		return MergeResult{}, err
	}
	res := MergeResult{Messages: make([]Message, 0, len(records))}
	for i, rec := range records {
		_, recipient, ok := rec.EmailField()
		if !ok {
			res.Skipped = append(res.Skipped, SkippedRecord{Index: i, Reason: ReasonNoEmailField})
			continue
		}
		res.Messages = append(res.Messages, Message{
			Recipient: strings.TrimSpace(recipient),
			Subject:   Render(tpl.Subject, rec),
			Text:      Render(tpl.Text, rec),
			HTML:      Render(tpl.HTML, rec),
		})
	}
	return res, nil
}

// Render replaces every {{ key }} in s with the record's value for key, or ""
// when the key is absent or null. Lookup is exact and case-sensitive.
// Substituted text is never scanned again, so a value containing "{{x}}" stays literal.
// Brace pairs that do not hold a valid key are copied unchanged.
func Render(s string, rec lead.Record) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:open])
		rest := s[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			b.WriteString(s[open:])
			return b.String()
		}
		key := strings.TrimSpace(rest[:end])
		if !isPlaceholderKey(key) {
			// Emit the opening braces and continue after them so a later "{{" inside is still seen.
			b.WriteString("{{")
			s = rest
			continue
		}
		if v, ok := rec.Get(key); ok {
			b.WriteString(v)
		}
		s = rest[end+2:]
	}
}

// Placeholders lists the distinct keys referenced by s, in first-use order.
func Placeholders(s string) []string {
	var keys []string
	seen := map[string]bool{}
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			return keys
		}
		rest := s[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return keys
		}
		key := strings.TrimSpace(rest[:end])
		if !isPlaceholderKey(key) {
			s = rest
			continue
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		s = rest[end+2:]
	}
}

func isPlaceholderKey(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}
