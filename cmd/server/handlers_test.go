package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/notes"
	"door43-helps-engine/internal/parser"
	"door43-helps-engine/pkg/logger"
)

const verseJSON = `[
	{"type": "milestone", "tag": "zaln", "content": "Παῦλος", "occurrence": "1", "children": [
		{"type": "word", "tag": "w", "text": "Paul", "occurrence": "1"}
	]},
	{"type": "text", "text": ", a servant."}
]`

func testServer(t *testing.T) http.Handler {
	t.Helper()
	l := logger.NewWithWriter(io.Discard, "error", "text")
	s := &server{
		cfg: config.Default(),
		log: l,
		resolver: crossref.ResolverFunc(func(link crossref.Link) (crossref.Article, error) {
			if link.String() == "rc://en/tw/dict/bible/kt/god" {
				return crossref.Article{Title: "God", HTML: `<article id="tw--bible--kt-god"><h2>God</h2><p>The one true God.</p></article>`}, nil
			}
			return crossref.Article{}, &crossref.UnresolvedLinkError{Link: link.String(), Message: "no corresponding article found"}
		}),
		parser:  parser.New(),
		metrics: newMetrics(),
	}
	return logRequest(l, s.routes())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testServer(t)
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPassedThrough(t *testing.T) {
	h := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestArticle(t *testing.T) {
	h := testServer(t)
	rec := do(t, h, http.MethodGet, "/article?link=rc://en/tw/dict/bible/kt/god", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp articleResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "God", resp.Page.Title)
	assert.Equal(t, 4, resp.Page.WordCount)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/article?link=rc://en/tw/dict/bible/kt/none", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/article?link=nope", "").Code)
}

func TestAlign(t *testing.T) {
	h := testServer(t)
	rec := do(t, h, http.MethodPost, "/align", `{"verseObjects": `+verseJSON+`, "quote": "Παῦλος"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp alignResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paul", resp.GLQuote)
	require.Len(t, resp.Alignment, 1)
	assert.Equal(t, "Paul", resp.Alignment[0][0].Word)
}

func TestAlignErrors(t *testing.T) {
	h := testServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/align", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/align", `{"quote": ""}`).Code)

	rec := do(t, h, http.MethodPost, "/align", `{"verseObjects": `+verseJSON+`, "quote": "Θεοῦ"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no alignment found")

	malformed := `[{"type": "milestone", "tag": "zaln", "content": "Παῦλος", "children": [
		{"type": "word", "tag": "w", "text": "Paul", "occurrence": "1"}]}]`
	rec = do(t, h, http.MethodPost, "/align", `{"verseObjects": `+malformed+`, "quote": "Παῦλος"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "milestone content without occurrence")

	metrics := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metrics, `helps_alignments_total{result="missed"} 1`)
}

func TestAlignWords(t *testing.T) {
	h := testServer(t)
	rec := do(t, h, http.MethodPost, "/align",
		`{"verseObjects": `+verseJSON+`, "words": [{"word": "Παῦλος", "occurrence": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp alignResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paul", resp.GLQuote)

	rec = do(t, h, http.MethodPost, "/align",
		`{"verseObjects": `+verseJSON+`, "words": [{"word": "Παῦλος"}, {"word": "…"}, {"word": "Θεοῦ"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBuildStatus(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, buildStatus(fmt.Errorf("build: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusGatewayTimeout, buildStatus(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, buildStatus(errors.New("replace links: bad html")))
}

func TestHighlight(t *testing.T) {
	h := testServer(t)
	rec := do(t, h, http.MethodPost, "/highlight",
		`{"html": "<p>The quick brown fox</p>", "phrases": [[{"word": "quick", "occurrence": 1}]]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp highlightResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, `<p>The <span class="highlight">quick</span> brown fox</p>`, resp.HTML)

	rec = do(t, h, http.MethodPost, "/highlight",
		`{"html": "<p>The quick brown fox</p>", "phrases": [[{"word": "zzz", "occurrence": 1}]]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "phrase not found")
}

func TestNotes(t *testing.T) {
	h := testServer(t)
	body := `{"book": "tit", "chapter": "1",
		"verses": {"1": {"verseObjects": ` + verseJSON + `}},
		"notes": [
			{"reference": "1:1", "id": "a1", "quote": "Παῦλος", "occurrence": 1, "note": "The writer."},
			{"reference": "1:1", "id": "b2", "quote": "Θεοῦ", "occurrence": 1, "note": "Not here.",
			 "supportReference": "rc://*/ta/man/translate/figs-missing"}
		]}`
	rec := do(t, h, http.MethodPost, "/notes", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc notes.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc.HTML, `<span class="highlight phrase phrase-1">Paul</span>`)
	require.Len(t, doc.Misses, 1)
	assert.Equal(t, "b2", doc.Misses[0].NoteID)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "rc://en/ta/man/translate/figs-missing", doc.Diagnostics[0].BadLink)

	metrics := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metrics, `helps_alignments_total{result="found"} 1`)
	assert.Contains(t, metrics, `helps_alignments_total{result="missed"} 1`)
	assert.Contains(t, metrics, "helps_crawl_diagnostics_total 1")
}

func TestNotesBadPayload(t *testing.T) {
	h := testServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/notes", `{"book": "tit"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/notes", `not json`).Code)
}

func TestNotesUpload(t *testing.T) {
	h := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("notes", "tit.tsv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("Reference\tID\tTags\tSupportReference\tQuote\tOccurrence\tNote\n" +
		"1:1\ta1\t\t\tΠαῦλος\t1\tThe writer.\n"))
	part, err = mw.CreateFormFile("verses", "01.json")
	require.NoError(t, err)
	_, _ = part.Write([]byte(`{"1": {"verseObjects": ` + verseJSON + `}}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/notes/upload?book=tit&chapter=1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var doc notes.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "Paul", doc.Notes[0].GLQuote)
	assert.Contains(t, doc.HTML, `<span class="highlight phrase phrase-1">Paul</span>`)

	rec = do(t, h, http.MethodPost, "/notes/upload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
