// Package view derives read-only projections from the ledger: the
// filtered rows, the running totals and the list of months that have
// data. Nothing here mutates its input.
package view

import (
	"sort"
	"strings"

	"kharcha/internal/core"
)

// All is the sentinel that disables the month or type predicate.
const All = "all"

// Filter holds the three independent search inputs.
type Filter struct {
	Search string `json:"q"`
	Month  string `json:"month"`
	Type   string `json:"type"`
}

// Projection is everything a front end needs to render the ledger.
type Projection struct {
	Rows          []core.Transaction `json:"rows"`
	Totals        core.Totals        `json:"totals"`
	Months        []string           `json:"months"`
	SelectedMonth string             `json:"selected_month"`
	Count         int                `json:"count"`
	Total         int                `json:"total"`
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}

// Apply keeps the records matching every predicate of f, in input order.
// The search text is matched case-insensitively against the category and
// note joined by a space.
func Apply(records []core.Transaction, f Filter) []core.Transaction {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	month := strings.TrimSpace(f.Month)
	typ := strings.ToLower(strings.TrimSpace(f.Type))

	out := make([]core.Transaction, 0, len(records))
	for _, t := range records {
		if q != "" {
			hay := strings.ToLower(t.Category + " " + t.Note)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		if !isAll(month) && t.MonthKey() != month {
			continue
		}
		if !isAll(typ) && string(t.Type) != typ {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Totals sums income and expense separately. Each figure is rounded to
// two decimals and the balance is the rounded difference.
func Totals(records []core.Transaction) core.Totals {
	var income, expense []float64
	for _, t := range records {
		switch t.Type {
		case core.Income:
			income = append(income, t.Amount)
		case core.Expense:
			expense = append(expense, t.Amount)
		}
	}
	in := core.SumRounded(income...)
	ex := core.SumRounded(expense...)
	return core.Totals{
		Income:  in,
		Expense: ex,
		Balance: core.SumRounded(in, -ex),
	}
}

// DistinctMonths returns the month keys present in records, most recent
// first. Records without a usable date are skipped.
func DistinctMonths(records []core.Transaction) []string {
	seen := make(map[string]struct{})
	months := make([]string, 0)
	for _, t := range records {
		m := t.MonthKey()
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// Project computes the rows for f together with totals over the whole,
// unfiltered ledger. A requested month that no longer has data falls
// back to All, both for SelectedMonth and for the rows.
func Project(records []core.Transaction, f Filter) Projection {
	months := DistinctMonths(records)
	selected := All
	for _, m := range months {
		if m == strings.TrimSpace(f.Month) {
			selected = m
			break
		}
	}

	f.Month = selected
	rows := Apply(records, f)
	return Projection{
		Rows:          rows,
		Totals:        Totals(records),
		Months:        months,
		SelectedMonth: selected,
		Count:         len(rows),
		Total:         len(records),
	}
}
