package ioformats

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"door43-helps-engine/internal/models"
)

var noteColumns = []string{"Reference", "ID", "Tags", "SupportReference", "Quote", "Occurrence", "Note"}

// ReadNotes reads translation notes in the seven-column TSV format. The
// header row is required; columns are matched by name.
func ReadNotes(r io.Reader) ([]models.Note, error) {
	// quotes are literal in notes TSV, so rows are split on tabs only
	var rows [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty notes tsv")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range noteColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("notes tsv missing %q column", c)
		}
	}
	get := func(row []string, col string) string {
		i := idx[col]
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var out []models.Note
	for n, row := range rows[1:] {
		occurrence := 1
		if s := get(row, "Occurrence"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("notes row %d: occurrence %q: %w", n+2, s, err)
			}
			occurrence = v
		}
		note := models.Note{
			Reference:        get(row, "Reference"),
			ID:               get(row, "ID"),
			Tags:             get(row, "Tags"),
			SupportReference: get(row, "SupportReference"),
			Quote:            get(row, "Quote"),
			Occurrence:       occurrence,
			Note:             strings.ReplaceAll(get(row, "Note"), `\n`, "\n"),
		}
		if i, ok := idx["GLQuote"]; ok && i < len(row) {
			note.GLQuote = strings.TrimSpace(row[i])
		}
		out = append(out, note)
	}
	return out, nil
}

// ReadChapter reads a chapter of parsed verses keyed by verse number, as
// produced by usfm-js: {"1": {"verseObjects": [...]}, ...}.
func ReadChapter(r io.Reader) (map[string]models.Verse, error) {
	var chapter map[string]models.Verse
	if err := json.NewDecoder(r).Decode(&chapter); err != nil {
		return nil, fmt.Errorf("read chapter: %w", err)
	}
	return chapter, nil
}
