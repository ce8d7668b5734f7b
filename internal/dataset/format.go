// Package dataset acquires and parses the emoji corpus: an HTTP download
// cached to a local file, JSON and CSV parsers into records, and a file
// watcher that triggers reloads when the local copy changes.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/browniellc/emojitools/internal/emoji"
)

// jsonRecord is the gemoji database entry shape.
type jsonRecord struct {
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Aliases     []string `json:"aliases"`
	Tags        []string `json:"tags"`
}

// Parse decodes data in the given format ("json", "csv", or "auto"). Auto
// sniffs JSON by the leading byte.
func Parse(data []byte, format string) ([]emoji.Record, error) {
	switch format {
	case "json":
		return ParseJSON(bytes.NewReader(data))
	case "csv":
		return ParseCSV(bytes.NewReader(data))
	case "", "auto":
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
			return ParseJSON(bytes.NewReader(data))
		}
		return ParseCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
}

// ParseJSON decodes a gemoji-style JSON array. Aliases and tags are merged
// into the keyword list, aliases first.
func ParseJSON(r io.Reader) ([]emoji.Record, error) {
	var raw []jsonRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding dataset JSON: %w", err)
	}
	records := make([]emoji.Record, 0, len(raw))
	for _, jr := range raw {
		records = append(records, emoji.Record{
			Character: jr.Emoji,
			Name:      jr.Description,
			Category:  jr.Category,
			Keywords:  mergeKeywords(jr.Aliases, jr.Tags),
		})
	}
	return records, nil
}

// ParseCSV decodes a CSV dataset with the header
// "character,name,category,keywords"; keywords are pipe-separated.
func ParseCSV(r io.Reader) ([]emoji.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading dataset CSV header: %w", err)
	}
	if err := checkCSVHeader(header); err != nil {
		return nil, err
	}

	var records []emoji.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset CSV: %w", err)
		}
		records = append(records, emoji.Record{
			Character: strings.TrimSpace(row[0]),
			Name:      strings.TrimSpace(row[1]),
			Category:  strings.TrimSpace(row[2]),
			Keywords:  splitKeywords(row[3]),
		})
	}
	return records, nil
}

func checkCSVHeader(header []string) error {
	want := []string{"character", "name", "category", "keywords"}
	for i, col := range header {
		if strings.TrimSpace(strings.ToLower(col)) != want[i] {
			return fmt.Errorf("unexpected dataset CSV header %v, want %v", header, want)
		}
	}
	return nil
}

func splitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

func mergeKeywords(aliases, tags []string) []string {
	if len(aliases)+len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(aliases)+len(tags))
	keywords := make([]string, 0, len(aliases)+len(tags))
	for _, kw := range append(append([]string{}, aliases...), tags...) {
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	return keywords
}
