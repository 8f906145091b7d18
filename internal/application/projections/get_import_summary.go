package projections

import "leadmail/internal/domain/lead"

// DefaultSampleSize is how many entries each summary section keeps.
const DefaultSampleSize = 3

// GetImportSummaryQuery carries a processing result to summarize.
type GetImportSummaryQuery struct {
	Result     lead.Result
	SampleSize int // zero selects DefaultSampleSize
}

// ErrorGroup aggregates ledger entries that share a reason.
type ErrorGroup struct {
	Reason  string          `json:"reason"`
	Count   int             `json:"count"`
	Samples []lead.RowError `json:"samples"`
}

// ImportSummary is the operator-facing digest of one import.
type ImportSummary struct {
	Metadata      lead.Metadata `json:"metadata"`
	EmptyRows     int           `json:"emptyRows"`
	SampleRecords []lead.Record `json:"sampleRecords"`
	ErrorGroups   []ErrorGroup  `json:"errorGroups"`
}

// QueryGetImportSummary groups the error ledger by reason and samples the valid records.
// PRE: none
// POST: ErrorGroups are in first-seen order; each group's Count covers every entry
//
//	while Samples holds at most SampleSize of them
//
// INVARIANT: the sum of group counts equals len(Result.Errors)
func QueryGetImportSummary(query GetImportSummaryQuery) ImportSummary {
	n := query.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}
	res := query.Result

	summary := ImportSummary{
		Metadata:      res.Metadata,
		EmptyRows:     res.EmptyRows(),
		SampleRecords: append([]lead.Record{}, res.Data[:min(n, len(res.Data))]...),
		ErrorGroups:   []ErrorGroup{},
	}

	index := make(map[string]int)
	for _, e := range res.Errors {
		i, ok := index[e.Reason]
		if !ok {
			i = len(summary.ErrorGroups)
			index[e.Reason] = i
			summary.ErrorGroups = append(summary.ErrorGroups, ErrorGroup{Reason: e.Reason, Samples: []lead.RowError{}})
		}
		g := &summary.ErrorGroups[i]
		g.Count++
		if len(g.Samples) < n {
			g.Samples = append(g.Samples, e)
		}
	}
	return summary
}
