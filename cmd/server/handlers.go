package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"door43-helps-engine/internal/alignment"
	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/highlight"
	"door43-helps-engine/internal/ioformats"
	"door43-helps-engine/internal/models"
	"door43-helps-engine/internal/notes"
	"door43-helps-engine/internal/parser"
	"door43-helps-engine/internal/quote"
	"door43-helps-engine/pkg/logger"
)

// alignReq carries the quote either as text or already split into words,
// where a word equal to the ellipsis marks a gap.
type alignReq struct {
	Verse      []models.VerseToken `json:"verseObjects"`
	Quote      string              `json:"quote"`
	Words      []quote.Word        `json:"words"`
	Occurrence int                 `json:"occurrence"`
}

func (req alignReq) quote() quote.Quote {
	if len(req.Words) == 0 {
		return quote.Parse(req.Quote, req.Occurrence)
	}
	words := make([]quote.Word, len(req.Words))
	for i, w := range req.Words {
		words[i] = quote.Word{Word: w.Word, Occurrence: w.Occurrence}
		if w.Occurrence < 1 {
			words[i].Occurrence = req.Occurrence
		}
	}
	return quote.FromWords(words)
}

type alignResp struct {
	Alignment models.Alignment `json:"alignment"`
	GLQuote   string           `json:"glQuote"`
}

type highlightReq struct {
	HTML    string           `json:"html"`
	Phrases models.Alignment `json:"phrases"`
}

type highlightResp struct {
	HTML  string `json:"html"`
	Error string `json:"error,omitempty"`
}

type notesReq struct {
	Book    string                  `json:"book"`
	Chapter string                  `json:"chapter"`
	Verses  map[string]models.Verse `json:"verses"`
	Notes   []models.Note           `json:"notes"`
}

type metrics struct {
	reg              *prom.Registry
	alignments       *prom.CounterVec
	highlightFailed  prom.Counter
	crawlDiagnostics prom.Counter
	buildDuration    prom.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		reg: prom.NewRegistry(),
		alignments: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "helps",
			Name:      "alignments_total",
			Help:      "Quote alignments attempted, by result",
		}, []string{"result"}),
		highlightFailed:  prom.NewCounter(prom.CounterOpts{Namespace: "helps", Name: "highlight_failures_total", Help: "Phrases that could not be highlighted"}),
		crawlDiagnostics: prom.NewCounter(prom.CounterOpts{Namespace: "helps", Name: "crawl_diagnostics_total", Help: "Bad links reported while crawling references"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "helps",
			Name:      "notes_build_duration_seconds",
			Help:      "Time to build one chapter of notes",
			Buckets:   prom.DefBuckets,
		}),
	}
	m.reg.MustRegister(m.alignments, m.highlightFailed, m.crawlDiagnostics, m.buildDuration)
	return m
}

func (m *metrics) observe(doc *notes.Document, elapsed time.Duration) {
	m.alignments.WithLabelValues("found").Add(float64(len(doc.Notes) - len(doc.Misses)))
	m.alignments.WithLabelValues("missed").Add(float64(len(doc.Misses)))
	m.highlightFailed.Add(float64(len(doc.BadHighlights)))
	m.crawlDiagnostics.Add(float64(len(doc.Diagnostics)))
	m.buildDuration.Observe(elapsed.Seconds())
}

type articleResp struct {
	Link    string             `json:"link"`
	HTML    string             `json:"html"`
	Fix     string             `json:"fix,omitempty"`
	Missing []string           `json:"missing,omitempty"`
	Page    models.ArticlePage `json:"page"`
}

type server struct {
	cfg      *config.Config
	log      *logger.Logger
	resolver crossref.Resolver
	parser   *parser.Parser
	metrics  *metrics
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	// GET /article?link=rc://en/tw/dict/bible/kt/god
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		link, err := crossref.ParseLink(r.URL.Query().Get("link"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		art, err := s.resolver.Resolve(link)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		page, err := s.parser.Extract(strings.NewReader(art.HTML), "text/html; charset=utf-8")
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, articleResp{Link: link.String(), HTML: art.HTML, Fix: art.Fix, Missing: art.Missing, Page: page})
	})

	// POST /align  { "verseObjects": [...], "quote": "...", "occurrence": 1 }
	//          or { "verseObjects": [...], "words": [{"word": "...", "occurrence": 1}, ...] }
	mux.HandleFunc("/align", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req alignReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Quote == "" && len(req.Words) == 0) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if req.Occurrence == 0 {
			req.Occurrence = 1
		}
		a, err := alignment.Align(req.Verse, req.quote())
		var malformed *alignment.MalformedTokenError
		if errors.As(err, &malformed) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			s.metrics.alignments.WithLabelValues("missed").Inc()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		s.metrics.alignments.WithLabelValues("found").Inc()
		writeJSON(w, http.StatusOK, alignResp{Alignment: a, GLQuote: alignment.Flatten(a)})
	})

	// POST /highlight  { "html": "...", "phrases": [[{"word": "...", "occurrence": 1}]] }
	mux.HandleFunc("/highlight", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req highlightReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HTML == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		out, err := highlight.MarkPhrases(req.HTML, req.Phrases, s.cfg.HighlightOptions()...)
		if err != nil {
			s.metrics.highlightFailed.Inc()
			writeJSON(w, http.StatusUnprocessableEntity, highlightResp{HTML: out, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, highlightResp{HTML: out})
	})

	// POST /notes  { "book": "tit", "chapter": "1", "verses": {...}, "notes": [...] }
	mux.HandleFunc("/notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req notesReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Book == "" || req.Chapter == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		s.build(w, r, req)
	})

	// POST /notes/upload?book=tit&chapter=1 (multipart notes=<tsv>, verses=<json>)
	mux.HandleFunc("/notes/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		req := notesReq{Book: r.URL.Query().Get("book"), Chapter: r.URL.Query().Get("chapter")}
		if req.Book == "" || req.Chapter == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "book and chapter query parameters required"})
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart parse error"})
			return
		}
		tsv, err := formFile(r, "notes")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file part 'notes' required"})
			return
		}
		chapter, err := formFile(r, "verses")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file part 'verses' required"})
			return
		}
		if req.Notes, err = ioformats.ReadNotes(bytes.NewReader(tsv)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if req.Verses, err = ioformats.ReadChapter(bytes.NewReader(chapter)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.build(w, r, req)
	})

	return mux
}

func (s *server) build(w http.ResponseWriter, r *http.Request, req notesReq) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Fetch.Timeout)
	defer cancel()

	start := time.Now()
	b := notes.NewBuilder(s.cfg.Language, req.Book, s.resolver,
		notes.WithRegistryOptions(s.cfg.RegistryOptions()...),
		notes.WithHighlightOptions(s.cfg.HighlightOptions()...),
		notes.WithLogger(requestLogger(r, s.log).Slog()),
	)
	doc, err := b.Build(ctx, req.Chapter, req.Verses, req.Notes)
	if err != nil {
		writeJSON(w, buildStatus(err), map[string]string{"error": err.Error()})
		return
	}
	s.metrics.observe(doc, time.Since(start))
	writeJSON(w, http.StatusOK, doc)
}

// buildStatus maps a Build error to a response code: running out of time is
// a gateway timeout, anything else is on our side.
func buildStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey struct{}

func requestLogger(r *http.Request, fallback *logger.Logger) *logger.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*logger.Logger); ok {
		return l
	}
	return fallback
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		rl := l.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rl)))
		rl.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
