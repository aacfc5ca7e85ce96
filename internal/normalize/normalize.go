// Package normalize flattens nested order summaries into the flat rows the
// exports are built from. Pure transforms, no I/O: missing fields are
// repaired with documented sentinels and reported as warnings on the side,
// never silently dropped and never fatal.
package normalize

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/doordash-export/internal/doordash"
)

// SentinelDate stands in for a missing order timestamp. It parses like a
// real timestamp and sorts before any date DoorDash could have produced.
const SentinelDate = "1900-01-01T00:00:00Z"

// UnknownPerson stands in for a sub-order whose creator record is missing.
const UnknownPerson = "Unknown"

// FlatRow is one item of one person's sub-order — the atomic unit both
// exports operate on.
type FlatRow struct {
	OrderID string `json:"order_id"`
	Date    string `json:"date"`
	Store   string `json:"store"`
	Person  string `json:"person"`
	Item    string `json:"item"`
	Options string `json:"options"`
}

// Warning reports a repaired (or skipped) record.
type Warning struct {
	OrderID string
	Message string
}

func (w Warning) String() string {
	if w.OrderID == "" {
		return w.Message
	}
	return fmt.Sprintf("order %s: %s", w.OrderID, w.Message)
}

// Flatten turns one order summary into one FlatRow per item. Rows preserve
// the source order of sub-orders, items, extras, and options. A summary with
// no usable order id yields no rows and a warning; an id is never fabricated.
func Flatten(summary *doordash.OrderSummary) ([]FlatRow, []Warning) {
	var warnings []Warning

	orderID := summary.OrderID()
	if orderID == "" {
		return nil, []Warning{{Message: "order has neither orderUuid nor id, skipping"}}
	}

	date := summary.Timestamp()
	if date == "" {
		warnings = append(warnings, Warning{OrderID: orderID, Message: "missing timestamp, using placeholder date"})
		date = SentinelDate
	}

	var rows []FlatRow
	for _, sub := range summary.Orders {
		person := personName(sub.Creator)
		for _, item := range sub.Items {
			rows = append(rows, FlatRow{
				OrderID: orderID,
				Date:    date,
				Store:   summary.Store.Name,
				Person:  person,
				Item:    item.Name,
				Options: optionsSummary(item.Extras),
			})
		}
	}
	return rows, warnings
}

// personName resolves "FirstName LastName" with per-field defaulting: a
// missing first name becomes Unknown even when the last name survived.
func personName(creator *doordash.Creator) string {
	if creator == nil {
		return UnknownPerson
	}
	first := creator.FirstName
	if first == "" {
		first = UnknownPerson
	}
	return strings.TrimSpace(first + " " + creator.LastName)
}

// optionsSummary joins every (extra, option) pair in source order as
// "extraName: optionName", comma separated. Empty when the item has none.
func optionsSummary(extras []doordash.Extra) string {
	var parts []string
	for _, extra := range extras {
		for _, option := range extra.Options {
			parts = append(parts, extra.Name+": "+option.Name)
		}
	}
	return strings.Join(parts, ", ")
}
