package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
)

const (
	maxDescriptionLen = 500
	maxCategoryLen    = 100
	maxReferenceLen   = 100
	maxStatusLen      = 50
)

var (
	minAmount = decimal.RequireFromString("0.01")
	maxAmount = decimal.RequireFromString("999999999.99")

	htmlTag = regexp.MustCompile(`<[^>]*>`)
)

// Record is an incoming entry before validation; every field is raw text.
type Record struct {
	Date        string
	Type        string
	Amount      string
	Category    string
	Description string
	Reference   string
	Status      string
}

// Importer validates incoming files. Now decides which dates lie in the
// future.
type Importer struct {
	Now func() time.Time
}

func (im Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now()
}

func (im Importer) Import(format Format, r io.Reader) Result {
	var (
		records []Record
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = ReadCSV(r)
	default:
		records, err = ReadJSON(r)
	}
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	return im.Check(records)
}

// Check sanitizes and validates each record on its own. Invalid records are
// counted and described, never repaired.
func (im Importer) Check(records []Record) Result {
	res := Result{
		TotalEntries: len(records),
		Errors:       []string{},
		Entries:      make([]Entry, 0, len(records)),
	}
	now := im.now()
	for i, rec := range records {
		entry, problems := validate(Sanitize(rec), now)
		if len(problems) > 0 {
			res.InvalidEntries++
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: %s", i+1, strings.Join(problems, "; ")))
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	res.ValidEntries = len(res.Entries)
	res.Success = res.ValidEntries > 0
	return res
}

// Sanitize trims every field, strips HTML tags and clamps lengths.
func Sanitize(rec Record) Record {
	return Record{
		Date:        clean(rec.Date, 64),
		Type:        strings.ToLower(clean(rec.Type, 32)),
		Amount:      clean(rec.Amount, 32),
		Category:    clean(rec.Category, maxCategoryLen),
		Description: clean(rec.Description, maxDescriptionLen),
		Reference:   clean(rec.Reference, maxReferenceLen),
		Status:      clean(rec.Status, maxStatusLen),
	}
}

func clean(s string, limit int) string {
	s = strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit]))
	}
	return s
}

func validate(rec Record, now time.Time) (Entry, []string) {
	var problems []string
	entry := Entry{
		Category:    rec.Category,
		Description: rec.Description,
		Reference:   rec.Reference,
		Status:      rec.Status,
	}

	if rec.Date == "" {
		problems = append(problems, "date is required")
	} else if date, err := parseDate(rec.Date); err != nil {
		problems = append(problems, "date is not valid")
	} else if date.After(now) {
		problems = append(problems, "date is in the future")
	} else {
		entry.Date = date
	}

	switch t := parseType(rec.Type); {
	case rec.Type == "":
		problems = append(problems, "type is required")
	case t == "":
		problems = append(problems, fmt.Sprintf("type %q is not valid", rec.Type))
	default:
		entry.Type = t
	}

	if rec.Amount == "" {
		problems = append(problems, "amount is required")
	} else if amount, err := decimal.NewFromString(rec.Amount); err != nil {
		problems = append(problems, "amount is not a number")
	} else if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		problems = append(problems, fmt.Sprintf("amount must be between %s and %s", minAmount.StringFixed(2), maxAmount.StringFixed(2)))
	} else {
		entry.Amount = amount
	}

	if rec.Category == "" {
		problems = append(problems, "category is required")
	}
	if rec.Description == "" {
		problems = append(problems, "description is required")
	}
	return entry, problems
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}

func parseType(raw string) domain.TransactionType {
	switch raw {
	case "inflow", "ingreso", "income":
		return domain.TransactionInflow
	case "outflow", "egreso", "gasto", "expense":
		return domain.TransactionOutflow
	default:
		return ""
	}
}

// ReadJSON accepts the export envelope or a bare array of entries. A record
// that is not an object becomes an empty record and fails validation.
func ReadJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	data = bytes.TrimSpace(data)

	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	} else {
		var doc struct {
			Entries []json.RawMessage `json:"entries"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if doc.Entries == nil {
			return nil, errors.New("invalid JSON: missing entries")
		}
		raw = doc.Entries
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var fields map[string]any
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			records = append(records, Record{})
			continue
		}
		records = append(records, Record{
			Date:        field(fields, "date"),
			Type:        field(fields, "type"),
			Amount:      field(fields, "amount"),
			Category:    field(fields, "category"),
			Description: field(fields, "description"),
			Reference:   field(fields, "reference"),
			Status:      field(fields, "status"),
		})
	}
	return records, nil
}

func field(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

var csvColumns = map[string]string{
	"fecha":       "date",
	"date":        "date",
	"tipo":        "type",
	"type":        "type",
	"monto":       "amount",
	"amount":      "amount",
	"categoría":   "category",
	"categoria":   "category",
	"category":    "category",
	"descripción": "description",
	"descripcion": "description",
	"description": "description",
	"referencia":  "reference",
	"reference":   "reference",
	"estado":      "status",
	"status":      "status",
}

// ReadCSV maps columns by header name, so column order does not matter.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("invalid CSV: empty file")
		}
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if key, ok := csvColumns[name]; ok {
			columns[key] = i
		}
	}
	for _, required := range []string{"date", "type", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("invalid CSV: missing %s column", required)
		}
	}

	records := make([]Record, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		get := func(key string) string {
			i, ok := columns[key]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, Record{
			Date:        get("date"),
			Type:        get("type"),
			Amount:      get("amount"),
			Category:    get("category"),
			Description: get("description"),
			Reference:   get("reference"),
			Status:      get("status"),
		})
	}
	return records, nil
}
