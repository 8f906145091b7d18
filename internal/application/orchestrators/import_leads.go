package orchestrators

import (
	"context"
	"io"
	"log/slog"

	"leadmail/internal/adapters/ingest"
	"leadmail/internal/domain/lead"
)

// ImportLeadsInput names the lead file and, for uploads, its contents.
// PRE: Name carries the file extension; when Source is nil, Name is a path on disk.
type ImportLeadsInput struct {
	Name        string
	Source      io.ReadSeeker
	MaxFileSize int64 // zero selects ingest.DefaultMaxFileSize
	Observer    lead.Observer
}

// ImportLeadsDeps holds the file readers; nil fields use the ingest package.
type ImportLeadsDeps struct {
	ReadFile   func(path string, max int64) (lead.RawTable, error)
	ReadSource func(name string, src io.ReadSeeker, max int64) (lead.RawTable, error)
}

// ExecuteImportLeads reads a CSV/XLSX/XLS lead file and runs it through the row processor.
// PRE: Input.Name is non-empty
// POST: Returns the processing result with per-row errors in the ledger; file and header
//
//	problems are returned as *ImportLeadsValidationError before any row is processed.
//
// INVARIANT: Result.Metadata.ValidEmails == len(Result.Data)
func ExecuteImportLeads(ctx context.Context, input ImportLeadsInput, deps ImportLeadsDeps) (lead.Result, error) {
	if err := ctx.Err(); err != nil {
		return lead.Result{}, err
	}
	if input.Name == "" {
		return lead.Result{}, &ImportLeadsValidationError{Message: "file name is required"}
	}
	limit := input.MaxFileSize
	if limit <= 0 {
		limit = ingest.DefaultMaxFileSize
	}

	var (
		table lead.RawTable
		err   error
	)
	if input.Source != nil {
		read := deps.ReadSource
		if read == nil {
			read = ingest.ReadSource
		}
		table, err = read(input.Name, input.Source, limit)
	} else {
		read := deps.ReadFile
		if read == nil {
			read = ingest.ReadFile
		}
		table, err = read(input.Name, limit)
	}
	if err != nil {
		slog.Warn("leads_import_rejected", "file", input.Name, "error", err)
		return lead.Result{}, &ImportLeadsValidationError{Message: err.Error(), Err: err}
	}

	res, err := lead.ProcessTable(table, input.Observer)
	if err != nil {
		slog.Warn("leads_import_rejected", "file", input.Name, "error", err)
		return lead.Result{}, &ImportLeadsValidationError{Message: err.Error(), Err: err}
	}

	slog.Info("leads_import",
		"file", input.Name,
		"total", res.Metadata.TotalRows,
		"valid", res.Metadata.ValidEmails,
		"invalid", res.Metadata.InvalidEmails,
		"duplicates", res.Metadata.DuplicatesRemoved,
		"empty", res.EmptyRows(),
	)
	return res, nil
}

// ImportLeadsValidationError is returned when the file or its headers cannot be imported.
type ImportLeadsValidationError struct {
	Message string
	Err     error
}

// Error implements the error interface.
// PRE: e.Message is set.
// POST: returns the validation error message string.
func (e *ImportLeadsValidationError) Error() string {
	return e.Message
}

// Unwrap exposes the ingest or header sentinel for errors.Is.
func (e *ImportLeadsValidationError) Unwrap() error {
	return e.Err
}
