package exchange

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

var csvHeader = []string{"Fecha", "Tipo", "Monto", "Categoría", "Descripción", "Referencia", "Estado"}

func WriteJSON(w io.Writer, entries []Entry, exportedAt time.Time) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{
		Version:      Version,
		ExportDate:   exportedAt.UTC(),
		TotalEntries: len(entries),
		Entries:      entries,
	})
}

// WriteCSV writes one row per entry. Description and reference are always
// quoted; other fields only when they need it.
func WriteCSV(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for i, h := range csvHeader {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(h)
	}
	bw.WriteString("\r\n")

	for _, e := range entries {
		fields := []string{
			quoteIfNeeded(e.Date.Format(time.RFC3339Nano)),
			quoteIfNeeded(string(e.Type)),
			e.Amount.String(),
			quoteIfNeeded(e.Category),
			quote(e.Description),
			quote(e.Reference),
			quoteIfNeeded(e.Status),
		}
		bw.WriteString(strings.Join(fields, ","))
		bw.WriteString("\r\n")
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if s == "" || (!strings.ContainsAny(s, ",\"\r\n") && strings.TrimSpace(s) == s) {
		return s
	}
	return quote(s)
}
