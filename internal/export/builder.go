// Package export aggregates flat rows into the two output tables: the
// per-item ledger and the per-order pivot grouped by participant. The
// builder owns the accumulated rows; both tables are computed over the same
// fully materialized collection because the pivot's column ordering depends
// on global per-person item counts.
package export

import (
	"sort"
	"strings"

	"github.com/eshaffer321/doordash-export/internal/normalize"
)

// Table is one output table, ready for CSV serialization.
type Table struct {
	Header []string
	Rows   [][]string
}

// Builder accumulates flat rows for the whole run.
type Builder struct {
	rows []normalize.FlatRow
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends rows in arrival order.
func (b *Builder) Add(rows ...normalize.FlatRow) {
	b.rows = append(b.rows, rows...)
}

// Len reports how many rows have been accumulated.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Itemized builds the per-item table: one output row per flat row, in the
// original fetch order, dates truncated to the YYYY-MM-DD portion.
func (b *Builder) Itemized() Table {
	t := Table{Header: []string{"Date", "Store", "Person", "Item", "Options"}}
	for _, row := range b.rows {
		t.Rows = append(t.Rows, []string{
			datePortion(row.Date), row.Store, row.Person, row.Item, row.Options,
		})
	}
	return t
}

// People returns every distinct person ranked by total item count across the
// run, descending, ties broken by first appearance.
func (b *Builder) People() []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var people []string
	for i, row := range b.rows {
		if _, ok := counts[row.Person]; !ok {
			firstSeen[row.Person] = i
			people = append(people, row.Person)
		}
		counts[row.Person]++
	}
	sort.SliceStable(people, func(i, j int) bool {
		if counts[people[i]] != counts[people[j]] {
			return counts[people[i]] > counts[people[j]]
		}
		return firstSeen[people[i]] < firstSeen[people[j]]
	})
	return people
}

// OrderGroup is one order's rows, regrouped for ledger recording.
type OrderGroup struct {
	OrderID     string
	Date        string
	Store       string
	PersonCount int
	Rows        []normalize.FlatRow
}

// Groups regroups the accumulated rows by order id, in first-appearance
// order.
func (b *Builder) Groups() []OrderGroup {
	index := make(map[string]int)
	var groups []OrderGroup
	for _, row := range b.rows {
		i, ok := index[row.OrderID]
		if !ok {
			i = len(groups)
			index[row.OrderID] = i
			groups = append(groups, OrderGroup{OrderID: row.OrderID})
		}
		groups[i].Date = row.Date
		groups[i].Store = row.Store
		groups[i].Rows = append(groups[i].Rows, row)
	}
	for i := range groups {
		people := make(map[string]struct{})
		for _, row := range groups[i].Rows {
			people[row.Person] = struct{}{}
		}
		groups[i].PersonCount = len(people)
	}
	return groups
}

type pivotOrder struct {
	date  string
	store string
	cells map[string]string
}

// Pivot builds the per-order table: one row per order in first-appearance
// order, one column per person in frequency order. A cell holds the
// person's item and options for that order. When one person has several
// items in one order the last item wins; this mirrors the historical
// grouping behavior and is left as-is because the itemized table already
// captures every item losslessly.
func (b *Builder) Pivot() Table {
	people := b.People()

	orders := make(map[string]*pivotOrder)
	var orderIDs []string
	for _, row := range b.rows {
		order, ok := orders[row.OrderID]
		if !ok {
			order = &pivotOrder{cells: make(map[string]string)}
			orders[row.OrderID] = order
			orderIDs = append(orderIDs, row.OrderID)
		}
		// All rows of one order share the same order-level date and
		// store, so last write wins is safe.
		order.date = row.Date
		order.store = row.Store
		order.cells[row.Person] = strings.TrimSpace(row.Item + ". " + row.Options)
	}

	t := Table{Header: append([]string{"Date", "Store"}, people...)}
	for _, id := range orderIDs {
		order := orders[id]
		out := []string{datePortion(order.date), order.store}
		for _, person := range people {
			out = append(out, order.cells[person])
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

// datePortion truncates an ISO-8601 timestamp to its 10-character date part.
func datePortion(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
