package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/cognicore/triage/internal/fixtures"
	"github.com/cognicore/triage/pkg/triage/internalerr"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func expectRule(t *testing.T, err error, rule string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error (%s), got nil", rule)
	}
	if !errors.Is(err, internalerr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var verr *internalerr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Rule != rule {
		t.Errorf("expected rule %q, got %q (%s)", rule, verr.Rule, verr.Detail)
	}
}

func TestLoadBalancedCSV(t *testing.T) {
	path := writeFile(t, "tickets.csv", fixtures.CSV(fixtures.Tickets(80)))

	var l Loader
	ds, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if ds.Len() != 400 {
		t.Errorf("Expected 400 tickets, got %d", ds.Len())
	}

	got := ds.CategorySet()
	want := Categories()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("CategorySet = %v, want %v", got, want)
	}
	for cat, n := range ds.Counts() {
		if n != 80 {
			t.Errorf("category %s has %d tickets, want 80", cat, n)
		}
	}
}

func TestLoadNormalizesCategories(t *testing.T) {
	rows := fixtures.Tickets(80)
	rows[0].Category = "  Billing "
	rows[1].Category = "CONTRACT"

	var l Loader
	ds, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.At(0).Category != "billing" || ds.At(1).Category != "contract" {
		t.Errorf("categories not normalized: %q %q", ds.At(0).Category, ds.At(1).Category)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	data := []byte("body,category\nhello,billing\n")

	var l Loader
	_, err := l.ReadCSV(bytes.NewReader(data))
	expectRule(t, err, internalerr.RuleSchema)
}

func TestLoadEmptyFile(t *testing.T) {
	var l Loader
	_, err := l.ReadCSV(bytes.NewReader(nil))
	expectRule(t, err, internalerr.RuleSchema)
}

func TestLoadExtraCategory(t *testing.T) {
	rows := fixtures.Tickets(80)
	rows[7].Category = "fraud"

	var l Loader
	_, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	expectRule(t, err, internalerr.RuleCategories)
}

func TestLoadMissingCategory(t *testing.T) {
	var rows []fixtures.Row
	for _, r := range fixtures.Tickets(100) {
		if r.Category != "other" {
			rows = append(rows, r)
		}
	}

	var l Loader
	_, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	expectRule(t, err, internalerr.RuleCategories)
}

func TestLoadWrongSize(t *testing.T) {
	var l Loader
	_, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(fixtures.Tickets(81))))
	expectRule(t, err, internalerr.RuleSize)
}

func TestLoadDropsMissingBeforeCounting(t *testing.T) {
	rows := fixtures.Tickets(81)
	// 5 extra rows, each with a missing field, are dropped before the size check.
	for i := 400; i < 405; i++ {
		if i%2 == 0 {
			rows[i].Text = ""
		} else {
			rows[i].Category = "NA"
		}
	}

	var l Loader
	ds, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Len() != 400 {
		t.Errorf("Expected 400 tickets after dropping missing rows, got %d", ds.Len())
	}
}

func TestLoadDropsSpreadsheetNAMarkers(t *testing.T) {
	markers := []string{"#NA", "#N/A N/A", "-NaN", "-nan", "1.#IND", "1.#QNAN", "-1.#IND", "-1.#QNAN"}
	rows := fixtures.Tickets(80)
	for i, m := range markers {
		extra := fixtures.Tickets(1)[i%5]
		if i%2 == 0 {
			extra.Text = m
		} else {
			extra.Category = m
		}
		rows = append(rows, extra)
	}

	var l Loader
	ds, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Len() != 400 {
		t.Errorf("Expected 400 tickets after dropping NA markers, got %d", ds.Len())
	}
}

func TestLoadCustomRules(t *testing.T) {
	l := Loader{Rules: Rules{ExpectedSize: 10}}
	_, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(fixtures.Tickets(2))))
	if err != nil {
		t.Fatalf("ReadCSV with ExpectedSize=10: %v", err)
	}
}

func TestLoadLatin1(t *testing.T) {
	utf := fixtures.CSV(fixtures.Tickets(80))
	latin, err := charmap.ISO8859_1.NewEncoder().Bytes(utf)
	if err != nil {
		t.Fatalf("encode latin-1: %v", err)
	}

	path := writeFile(t, "latin1.csv", latin)
	var l Loader
	ds, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	found := false
	for _, tk := range ds.Tickets() {
		if strings.Contains(tk.Text, "Gebühren") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected umlauts to survive latin-1 decoding")
	}
}

func TestLoadJSONL(t *testing.T) {
	var buf bytes.Buffer
	for _, r := range fixtures.Tickets(80) {
		fmt.Fprintf(&buf, "{\"text\":%q,\"category\":%q,\"id\":1}\n", r.Text, r.Category)
	}

	path := writeFile(t, "tickets.jsonl", buf.Bytes())
	var l Loader
	ds, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 400 {
		t.Errorf("Expected 400 tickets, got %d", ds.Len())
	}
}

func TestLoadJSONLMissingKey(t *testing.T) {
	data := []byte("{\"body\":\"hello\",\"category\":\"billing\"}\n")

	var l Loader
	_, err := l.ReadJSONL(bytes.NewReader(data))
	expectRule(t, err, internalerr.RuleSchema)
}

func TestLoadStripHTML(t *testing.T) {
	rows := fixtures.Tickets(80)
	rows[0].Text = "<p>Invoice <b>wrong</b></p><script>x()</script>"

	l := Loader{StripHTML: true}
	ds, err := l.ReadCSV(bytes.NewReader(fixtures.CSV(rows)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := ds.At(0).Text; got != "Invoice wrong" {
		t.Errorf("StripHTML text = %q, want %q", got, "Invoice wrong")
	}
}

func TestLoadMissingFile(t *testing.T) {
	var l Loader
	_, err := l.Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, internalerr.ErrValidation) {
		t.Error("I/O failures should not be reported as validation errors")
	}
}

func TestNewDataset(t *testing.T) {
	var tickets []Ticket
	for _, r := range fixtures.Tickets(80) {
		tickets = append(tickets, Ticket{Text: r.Text, Category: r.Category})
	}

	ds, err := NewDataset(tickets, Rules{})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if len(ds.Texts()) != 400 || len(ds.Labels()) != 400 {
		t.Error("Texts/Labels should cover every ticket")
	}

	tickets[0].Category = "fraud"
	if _, err := NewDataset(tickets, Rules{}); !errors.Is(err, internalerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
