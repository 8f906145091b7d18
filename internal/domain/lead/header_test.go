package lead

import "testing"

// TestResolveHeaders_NoHeaders tests that an empty header row is rejected.
func TestResolveHeaders_NoHeaders(t *testing.T) {
	got := ResolveHeaders(nil)
	if got.IsValid || got.Reason != ReasonNoHeaders || got.EmailColumnIndex != -1 {
		t.Errorf("got %+v, want invalid with %q", got, ReasonNoHeaders)
	}
}

// TestResolveHeaders_NoEmailColumn tests that headers without "email" are rejected.
func TestResolveHeaders_NoEmailColumn(t *testing.T) {
	got := ResolveHeaders([]string{"Name", "Company", "Mail"})
	if got.IsValid || got.Reason != ReasonNoEmailColumn {
		t.Errorf("got %+v, want invalid with %q", got, ReasonNoEmailColumn)
	}
}

// TestResolveHeaders_FirstMatchWins tests the case-insensitive first-match rule.
func TestResolveHeaders_FirstMatchWins(t *testing.T) {
	got := ResolveHeaders([]string{"Name", "Work EMAIL", "Personal Email"})
	if !got.IsValid {
		t.Fatalf("expected valid, got %+v", got)
	}
	if got.EmailColumnIndex != 1 {
		t.Errorf("EmailColumnIndex = %d, want 1", got.EmailColumnIndex)
	}
}

// TestStandardizeHeader tests camelCase key derivation.
func TestStandardizeHeader(t *testing.T) {
	tests := map[string]string{
		"First Name":      "firstName",
		"first name":      "firstName",
		"First-Name":      "firstName",
		"EMAIL":           "email",
		"Company  Name":   "companyName",
		"e-mail address":  "eMailAddress",
		"Phone #":         "phone",
		"_id":             "Id",
		"Address Line 2":  "addressLine2",
		"":                "",
		"Job Title (opt)": "jobTitleOpt",
	}
	for in, want := range tests {
		if got := StandardizeHeader(in); got != want {
			t.Errorf("StandardizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}
