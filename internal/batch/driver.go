// Package batch implements the embarrassingly-parallel (record, PSI)
// evaluation driver (spec.md §4.G).
package batch

import (
	"runtime"
	"sort"
	"sync"

	"psiengine/internal/codeset"
	"psiengine/internal/encounter"
	"psiengine/internal/gate"
	"psiengine/internal/psi"
)

// Options configures one batch run.
type Options struct {
	SelectedPSIs []psi.Name
	Flags        psi.Flags
	Workers      int // 0 means runtime.GOMAXPROCS(0)
}

// job is one (row index, encounter, PSI) unit of work.
type job struct {
	rowIndex int
	e        *encounter.Encounter
	name     psi.Name
}

// RunSummary aggregates one selected PSI's results across the batch
// (spec.md §3 additions).
type RunSummary struct {
	PSIName         psi.Name
	TotalCases      int
	Inclusions      int
	Exclusions      int
	DenominatorOnly int
	RatePer1000     float64
}

// Output is the full result of a batch run: ordered Results plus one
// RunSummary per selected PSI.
type Output struct {
	Results   []psi.Result
	RowIndex  []int // RowIndex[i] is the input row index of Results[i]
	Summaries []RunSummary
}

// Run evaluates every selected PSI against every encounter, applying
// the common gate first, and fans work across a bounded worker pool
// (spec.md §5). Encounters are evaluated independently and concurrently;
// output is sorted by input row index once at the end.
func Run(records []*encounter.Encounter, reg *codeset.Registry, opts Options) Output {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(records) && len(records) > 0 {
		workers = len(records)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan job, workers*2)
	var wg sync.WaitGroup

	type partial struct {
		rows    []int
		results []psi.Result
	}
	partials := make([]partial, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			var rows []int
			var results []psi.Result
			for j := range jobs {
				g := gate.Check(j.e, reg)
				var res psi.Result
				if g.Excluded {
					res = psi.Result{
						EncounterID: j.e.EncounterID,
						PSIName:     j.name,
						Status:      psi.Exclusion,
						Rationale:   []string{g.Rationale},
						Details:     map[string]any{},
					}
				} else {
					res = psi.Evaluate(j.e, j.name, reg, opts.Flags)
				}
				rows = append(rows, j.rowIndex)
				results = append(results, res)
			}
			partials[slot] = partial{rows: rows, results: results}
		}(w)
	}

	for i, e := range records {
		for _, name := range opts.SelectedPSIs {
			jobs <- job{rowIndex: i, e: e, name: name}
		}
	}
	close(jobs)
	wg.Wait()

	var rowIdx []int
	var results []psi.Result
	for _, p := range partials {
		rowIdx = append(rowIdx, p.rows...)
		results = append(results, p.results...)
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rowIdx[order[a]] < rowIdx[order[b]] })

	sortedRows := make([]int, len(order))
	sortedResults := make([]psi.Result, len(order))
	for i, idx := range order {
		sortedRows[i] = rowIdx[idx]
		sortedResults[i] = results[idx]
	}

	return Output{
		Results:   sortedResults,
		RowIndex:  sortedRows,
		Summaries: summarize(opts.SelectedPSIs, sortedResults),
	}
}

func summarize(selected []psi.Name, results []psi.Result) []RunSummary {
	byName := make(map[psi.Name]*RunSummary, len(selected))
	var order []psi.Name
	for _, n := range selected {
		if _, ok := byName[n]; !ok {
			byName[n] = &RunSummary{PSIName: n}
			order = append(order, n)
		}
	}

	for _, r := range results {
		s, ok := byName[r.PSIName]
		if !ok {
			continue
		}
		s.TotalCases++
		switch r.Status {
		case psi.Inclusion:
			s.Inclusions++
		case psi.Exclusion:
			s.Exclusions++
		case psi.DenominatorOnly:
			s.DenominatorOnly++
		}
	}

	out := make([]RunSummary, 0, len(order))
	for _, n := range order {
		s := *byName[n]
		denom := s.Inclusions + s.DenominatorOnly
		if denom > 0 {
			s.RatePer1000 = float64(s.Inclusions) / float64(denom) * 1000
		}
		out = append(out, s)
	}
	return out
}
