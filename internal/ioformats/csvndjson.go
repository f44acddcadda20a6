package ioformats

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// linkColumns are the CSV headers and NDJSON keys a link list may use.
var linkColumns = []string{"link", "rc", "url"}

// ReadLinks reads rc links from a CSV file with a link, rc or url column, or
// from NDJSON lines holding an object, a quoted string or a bare link. Other
// extensions are tried as CSV first. Repeated links are dropped.
func ReadLinks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var links []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		links, err = linksFromCSV(data)
	case ".ndjson", ".jsonl":
		links, err = linksFromNDJSON(data)
	default:
		if links, err = linksFromCSV(data); err != nil || len(links) == 0 {
			links, err = linksFromNDJSON(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read links %s: %w", path, err)
	}
	seen := make(map[string]bool, len(links))
	return slices.DeleteFunc(links, func(l string) bool {
		dup := seen[l]
		seen[l] = true
		return dup
	}), nil
}

func isLinkColumn(name string) bool {
	return slices.ContainsFunc(linkColumns, func(c string) bool {
		return strings.EqualFold(strings.TrimSpace(name), c)
	})
}

func linksFromCSV(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, err
	}
	col := slices.IndexFunc(header, isLinkColumn)
	if col == -1 {
		return nil, errors.New("csv must contain a 'link' header column")
	}
	var out []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if col < len(row) {
			if l := strings.TrimSpace(row[col]); l != "" {
				out = append(out, l)
			}
		}
	}
}

func linksFromNDJSON(data []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if l := decodeLink(line); l != "" {
			out = append(out, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no links found in ndjson")
	}
	return out, nil
}

// decodeLink reads one NDJSON line: {"link": "..."}, "..." or a bare link.
func decodeLink(line string) string {
	switch line[0] {
	case '{':
		var obj map[string]any
		if json.Unmarshal([]byte(line), &obj) == nil {
			for _, c := range linkColumns {
				if s, ok := obj[c].(string); ok && s != "" {
					return s
				}
			}
		}
	case '"':
		var s string
		if json.Unmarshal([]byte(line), &s) == nil {
			return s
		}
	}
	return line
}

// WriteNDJSON writes items as NDJSON to w, one value per line, without
// escaping HTML.
func WriteNDJSON[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
