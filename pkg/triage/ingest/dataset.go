package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/triage/pkg/triage/internalerr"
)

// Canonical ticket categories.
const (
	Billing  = "billing"
	Network  = "network"
	Device   = "device"
	Contract = "contract"
	Other    = "other"
)

// DefaultExpectedSize is the record count a training dataset must have.
const DefaultExpectedSize = 400

// Categories returns the five canonical categories in sorted order.
func Categories() []string {
	return []string{Billing, Contract, Device, Network, Other}
}

// NormalizeCategory trims and lowercases a raw category label.
func NormalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Ticket is one labelled support ticket
type Ticket struct {
	Text     string
	Category string
}

// Dataset is a validated, read-only ticket collection.
type Dataset struct {
	tickets []Ticket
}

// Len returns the number of tickets.
func (d Dataset) Len() int { return len(d.tickets) }

// At returns the i-th ticket.
func (d Dataset) At(i int) Ticket { return d.tickets[i] }

// Tickets returns a copy of the tickets.
func (d Dataset) Tickets() []Ticket {
	out := make([]Ticket, len(d.tickets))
	copy(out, d.tickets)
	return out
}

// Texts returns the raw ticket texts in dataset order.
func (d Dataset) Texts() []string {
	out := make([]string, len(d.tickets))
	for i, t := range d.tickets {
		out[i] = t.Text
	}
	return out
}

// Labels returns the categories in dataset order.
func (d Dataset) Labels() []string {
	out := make([]string, len(d.tickets))
	for i, t := range d.tickets {
		out[i] = t.Category
	}
	return out
}

// Counts returns the number of tickets per category.
func (d Dataset) Counts() map[string]int {
	counts := make(map[string]int)
	for _, t := range d.tickets {
		counts[t.Category]++
	}
	return counts
}

// CategorySet returns the distinct categories present, sorted.
func (d Dataset) CategorySet() []string {
	counts := d.Counts()
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Rules configures dataset validation.
type Rules struct {
	Categories   []string // allowed category set; defaults to Categories()
	ExpectedSize int      // defaults to DefaultExpectedSize
}

func (r Rules) categories() []string {
	if len(r.Categories) == 0 {
		return Categories()
	}
	out := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		out[i] = NormalizeCategory(c)
	}
	sort.Strings(out)
	return out
}

func (r Rules) expectedSize() int {
	if r.ExpectedSize <= 0 {
		return DefaultExpectedSize
	}
	return r.ExpectedSize
}

// record is one raw row before validation; nil means the field was missing.
type record struct {
	text     *string
	category *string
}

// validate turns raw rows into a Dataset. Rows with a missing text or category
// are dropped first; the remaining rows must carry exactly the allowed
// category set and number exactly ExpectedSize. Nothing is returned unless
// every rule holds.
func (r Rules) validate(columns map[string]bool, rows []record) (Dataset, error) {
	for _, col := range []string{"text", "category"} {
		if !columns[col] {
			return Dataset{}, &internalerr.ValidationError{
				Rule:   internalerr.RuleSchema,
				Detail: fmt.Sprintf("dataset must contain columns [category text], missing %q", col),
			}
		}
	}

	tickets := make([]Ticket, 0, len(rows))
	for _, row := range rows {
		if row.text == nil || row.category == nil {
			continue
		}
		tickets = append(tickets, Ticket{
			Text:     *row.text,
			Category: NormalizeCategory(*row.category),
		})
	}

	ds := Dataset{tickets: tickets}

	want := r.categories()
	got := ds.CategorySet()
	if !equalStrings(want, got) {
		return Dataset{}, &internalerr.ValidationError{
			Rule:   internalerr.RuleCategories,
			Detail: fmt.Sprintf("incorrect categories detected: expected %v, got %v", want, got),
		}
	}

	if size := r.expectedSize(); ds.Len() != size {
		return Dataset{}, &internalerr.ValidationError{
			Rule:   internalerr.RuleSize,
			Detail: fmt.Sprintf("expected %d records, got %d", size, ds.Len()),
		}
	}

	return ds, nil
}

// NewDataset validates in-memory tickets with the same rules as Loader.
func NewDataset(tickets []Ticket, rules Rules) (Dataset, error) {
	rows := make([]record, len(tickets))
	for i := range tickets {
		text, cat := tickets[i].Text, tickets[i].Category
		if text != "" {
			rows[i].text = &text
		}
		if cat != "" {
			rows[i].category = &cat
		}
	}
	return rules.validate(map[string]bool{"text": true, "category": true}, rows)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
