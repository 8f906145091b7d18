package lead

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Row error reasons recorded in the error ledger.
const (
	ReasonEmptyRow      = "Empty row"
	ReasonEmptyEmail    = "Email is empty"
	ReasonInvalidEmail  = "Invalid email format"
	ReasonDuplicate     = "Duplicate email"
	ReasonNoHeaders     = "No headers found"
	ReasonNoEmailColumn = "No email column found"
)

// Domain errors
var (
	ErrNoHeaders     = errors.New(ReasonNoHeaders)
	ErrNoEmailColumn = errors.New(ReasonNoEmailColumn)
)

// RawTable is the uniform shape every ingestor hands to the row processor.
// A missing cell and an empty cell both mean null.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Metadata holds the summary counts of a processing run.
// INVARIANT: ValidEmails + InvalidEmails + DuplicatesRemoved + empty rows == TotalRows
type Metadata struct {
	TotalRows         int `json:"totalRows"`
	ValidEmails       int `json:"validEmails"`
	InvalidEmails     int `json:"invalidEmails"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// RowError is one entry of the per-row error ledger.
type RowError struct {
	Row    int    `json:"row"` // 1-based file row, header included
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// Result is the structured output of Process.
// INVARIANT: Metadata.ValidEmails == len(Data)
type Result struct {
	Metadata Metadata   `json:"metadata"`
	Data     []Record   `json:"data"`
	Errors   []RowError `json:"errors"`
}

// Record is one valid, non-duplicate lead. Keys keep header order; a repeated
// key keeps its first position and takes the last value written.
type Record struct {
	keys   []string
	values map[string]*string

	// Email is the normalized address used as the dedup key.
	Email string
}

// NewRecord builds a record from alternating key/value pairs. Empty values are stored as null.
func NewRecord(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.SetString(pairs[i], pairs[i+1])
	}
	return r
}

// Set stores v under key. A nil v is a null cell.
// A repeated key keeps its first position and takes the new value.
func (r *Record) Set(key string, v *string) {
	if r.values == nil {
		r.values = make(map[string]*string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// SetString stores s under key, mapping "" to null.
func (r *Record) SetString(key, s string) {
	if s == "" {
		r.Set(key, nil)
		return
	}
	r.Set(key, &s)
}

// Keys returns the record keys in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r Record) Len() int { return len(r.keys) }

// Has reports whether key is present, null or not.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the value for key. ok is false when the key is absent or null.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Fields returns the non-null values as a plain map.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		if v, ok := r.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// EmailField returns the first key (in key order) containing "email",
// case-insensitively, and its value.
// POST: ok is false when no such key exists or its value is null/empty
func (r Record) EmailField() (key, value string, ok bool) {
	for _, k := range r.keys {
		if strings.Contains(strings.ToLower(k), "email") {
			v, present := r.Get(k)
			return k, v, present && v != ""
		}
	}
	return "", "", false
}

// MarshalJSON encodes the record as an object in key order, nulls included.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping key order. Non-string scalars are
// kept in their JSON text form.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch {
		case bytes.Equal(raw, []byte("null")):
			r.Set(key, nil)
		case len(raw) > 0 && raw[0] == '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			r.Set(key, &s)
		default:
			s := string(raw)
			r.Set(key, &s)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, v, ok := r.EmailField(); ok {
		r.Email = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

// HeaderError is returned when the header row cannot be used. It is fatal for
// the whole processing call.
type HeaderError struct {
	Reason string
}

// Error implements the error interface.
func (e *HeaderError) Error() string {
	return e.Reason
}

// Is lets errors.Is match the sentinel for the same reason.
func (e *HeaderError) Is(target error) bool {
	switch target {
	case ErrNoHeaders:
		return e.Reason == ReasonNoHeaders
	case ErrNoEmailColumn:
		return e.Reason == ReasonNoEmailColumn
	}
	return false
}
