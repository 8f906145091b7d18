package lead

// ProgressBatchSize is how many rows pass between Observer.OnBatch calls.
const ProgressBatchSize = 100

// Observer receives optional progress callbacks from Process.
type Observer interface {
	// OnBatch is called before row first (1-based) with the batch number and
	// the inclusive row range the batch covers.
	OnBatch(batch, first, last int)
}

// Process validates, normalizes and deduplicates rows into records.
// PRE: headers is the header row; rows may be ragged (short rows are null-padded)
// POST: returns a *HeaderError before touching any row when headers are unusable;
//
//	otherwise every row is accounted for exactly once in Data or Errors.
//
// INVARIANT: no state survives between calls; the same input yields the same Result.
func Process(headers []string, rows [][]string, obs Observer) (Result, error) {
	resolution := ResolveHeaders(headers)
	if !resolution.IsValid {
		return Result{}, &HeaderError{Reason: resolution.Reason}
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = StandardizeHeader(h)
	}

	result := Result{
		Metadata: Metadata{TotalRows: len(rows)},
		Data:     []Record{},
		Errors:   []RowError{},
	}
	seen := make(map[string]struct{}, len(rows))

	for idx, row := range rows {
		if obs != nil && idx%ProgressBatchSize == 0 {
			last := idx + ProgressBatchSize
			if last > len(rows) {
				last = len(rows)
			}
			obs.OnBatch(idx/ProgressBatchSize+1, idx+1, last)
		}
		rowNum := idx + 2

		validation := ValidateEmail(cell(row, resolution.EmailColumnIndex))

		var rec Record
		hasValues := false
		for col, key := range keys {
			v := cell(row, col)
			rec.SetString(key, v)
			if v != "" {
				hasValues = true
			}
		}
		// Cells beyond the header width still make a row non-empty.
		for col := len(keys); col < len(row) && !hasValues; col++ {
			hasValues = row[col] != ""
		}

		switch {
		case !hasValues:
			result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: ReasonEmptyRow})
		case !validation.IsValid:
			result.Metadata.InvalidEmails++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Email: validation.NormalizedEmail, Reason: validation.Reason})
		default:
			if _, dup := seen[validation.NormalizedEmail]; dup {
				result.Metadata.DuplicatesRemoved++
				result.Errors = append(result.Errors, RowError{Row: rowNum, Email: validation.NormalizedEmail, Reason: ReasonDuplicate})
				continue
			}
			seen[validation.NormalizedEmail] = struct{}{}
			rec.Email = validation.NormalizedEmail
			result.Metadata.ValidEmails++
			result.Data = append(result.Data, rec)
		}
	}

	return result, nil
}

// ProcessTable is Process over a RawTable.
func ProcessTable(t RawTable, obs Observer) (Result, error) {
	return Process(t.Headers, t.Rows, obs)
}

// EmptyRows counts ledger entries tagged as empty rows.
func (r Result) EmptyRows() int {
	n := 0
	for _, e := range r.Errors {
		if e.Reason == ReasonEmptyRow {
			n++
		}
	}
	return n
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
