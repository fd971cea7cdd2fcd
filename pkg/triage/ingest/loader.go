package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/cognicore/triage/pkg/triage/internalerr"
)

// missingMarkers are cell values treated as absent, matching the NA markers
// common spreadsheet and dataframe exports write for empty cells.
var missingMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"N/A":      {},
	"n/a":      {},
	"NA":       {},
	"<NA>":     {},
	"NULL":     {},
	"null":     {},
	"NaN":      {},
	"nan":      {},
	"None":     {},
}

// Loader reads ticket tables (CSV or JSONL) and validates them.
type Loader struct {
	Rules     Rules
	StripHTML bool // flatten HTML markup in ticket text
}

// Load reads the dataset at path. Files ending in .jsonl or .ndjson are read
// as JSON lines, everything else as CSV with a header row.
func (l *Loader) Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return l.ReadJSONL(bytes.NewReader(data))
	default:
		return l.ReadCSV(bytes.NewReader(data))
	}
}

// ReadCSV parses a CSV table with a header row. Input that is not valid UTF-8
// is decoded as ISO-8859-1.
func (l *Loader) ReadCSV(r io.Reader) (Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv: %w", err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return Dataset{}, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return l.Rules.validate(nil, nil)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	columns := map[string]bool{}
	for name := range index {
		columns[name] = true
	}

	var rows []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, record{
			text:     l.field(fields, index, "text", true),
			category: l.field(fields, index, "category", false),
		})
	}

	return l.Rules.validate(columns, rows)
}

func (l *Loader) field(fields []string, index map[string]int, name string, isText bool) *string {
	i, ok := index[name]
	if !ok || i >= len(fields) {
		return nil
	}
	v := fields[i]
	if _, missing := missingMarkers[v]; missing {
		return nil
	}
	if isText && l.StripHTML {
		v = StripHTML(v)
	}
	return &v
}

// ReadJSONL parses one JSON object per line. The schema is the union of keys
// seen across all objects; null values count as missing.
func (l *Loader) ReadJSONL(r io.Reader) (Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("read jsonl: %w", err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return Dataset{}, err
	}

	columns := map[string]bool{}
	var rows []record
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return Dataset{}, &internalerr.ValidationError{
				Rule:   internalerr.RuleSchema,
				Detail: fmt.Sprintf("malformed JSON at line %d: %v", i+1, err),
			}
		}
		for k := range obj {
			columns[k] = true
		}

		rec := record{
			text:     jsonField(obj, "text"),
			category: jsonField(obj, "category"),
		}
		if rec.text != nil && l.StripHTML {
			s := StripHTML(*rec.text)
			rec.text = &s
		}
		rows = append(rows, rec)
	}

	return l.Rules.validate(columns, rows)
}

func jsonField(obj map[string]any, key string) *string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	default:
		s = fmt.Sprint(val)
	}
	if s == "" {
		return nil
	}
	return &s
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(decoded), nil
}
