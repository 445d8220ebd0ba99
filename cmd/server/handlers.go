package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/purini-to/zapmw"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"

	"sectordash/internal/constituents"
	"sectordash/internal/quote"
)

const version = "1.1.0"

// The market index symbol and its ETF stand-in. Free Finnhub keys cannot
// read ^GSPC, so SPY answers when the index symbol fails.
const (
	indexSymbol   = "^GSPC"
	indexFallback = "SPY"
	indexName     = "S&P 500"
)

var allowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// quoteAcquirer is the slice of the orchestrator the handlers consume.
type quoteAcquirer interface {
	Acquire(ctx context.Context, symbols []string, refresh bool) (quote.BatchResult, error)
}

type server struct {
	log          *zap.Logger
	quotes       quoteAcquirer
	dataset      *constituents.Dataset
	defaultLimit int
	maxCompanies int
	now          func() time.Time

	// Concurrent index requests collapse into one upstream acquisition.
	index singleflight.Group
}

func newServer(log *zap.Logger, quotes quoteAcquirer, dataset *constituents.Dataset, defaultLimit, maxCompanies int) *server {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxCompanies <= 0 {
		maxCompanies = 80
	}
	return &server{
		log:          log,
		quotes:       quotes,
		dataset:      dataset,
		defaultLimit: defaultLimit,
		maxCompanies: maxCompanies,
		now:          time.Now,
	}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(
		zapmw.WithZap(s.log),
		zapmw.Request(zapcore.InfoLevel, "request"),
		zapmw.Recoverer(zapcore.ErrorLevel, "recover", zapmw.RecovererDefault),
	)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/index", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/sectors", s.handleSectors).Methods(http.MethodGet)
	r.HandleFunc("/api/subsectors/{sector}", s.handleSubsectors).Methods(http.MethodGet)
	r.HandleFunc("/api/sector/{sector}", s.handleSector).Methods(http.MethodGet)
	r.HandleFunc("/api/subsector/{sector}/{subIndustry}", s.handleSubsector).Methods(http.MethodGet)
	r.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(handlers.CompressHandler(r))
}

// companyRow is one dashboard row: constituent identity plus the quote
// payload when one is available.
type companyRow struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	SubIndustry string `json:"subIndustry"`
	*quote.Quote
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Source string `json:"source,omitempty"`
}

type groupResponse struct {
	Sector      string       `json:"sector"`
	SubIndustry string       `json:"subIndustry,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Companies   []companyRow `json:"companies"`
	Meta        quote.Meta   `json:"meta"`
}

type indexResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	*quote.Quote
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"ts":      s.now().UTC(),
		"version": version,
	})
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	refresh := boolParam(r, "refresh")

	// Refresh requests must not coalesce onto an in-flight cached read
	key := "index"
	if refresh {
		key = "index:refresh"
	}
	v, err, _ := s.index.Do(key, func() (any, error) {
		res, err := s.quotes.Acquire(r.Context(), []string{indexSymbol}, refresh)
		if err != nil {
			return nil, err
		}
		item := res.Items[0]
		if item.Status != quote.StatusError {
			return item, nil
		}
		// ^GSPC unavailable on this key tier; the ETF tracks it closely
		res, err = s.quotes.Acquire(r.Context(), []string{indexFallback}, refresh)
		if err != nil {
			return nil, err
		}
		return res.Items[0], nil
	})
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	item := v.(quote.Result)
	if item.Status == quote.StatusError {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "index quote unavailable: " + item.Error})
		return
	}
	s.writeJSON(w, http.StatusOK, indexResponse{
		Symbol:    item.Symbol,
		Name:      indexName,
		Quote:     item.Quote,
		Status:    item.Status,
		Source:    item.Source,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *server) handleSectors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"sectors": s.dataset.Sectors()})
}

func (s *server) handleSubsectors(w http.ResponseWriter, r *http.Request) {
	sector := mux.Vars(r)["sector"]
	if !s.dataset.HasSector(sector) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown sector: " + sector})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sector":        sector,
		"subIndustries": s.dataset.SubIndustries(sector),
	})
}

func (s *server) handleSector(w http.ResponseWriter, r *http.Request) {
	sector := mux.Vars(r)["sector"]
	members := s.dataset.BySector(sector)
	if len(members) == 0 {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown sector: " + sector})
		return
	}
	s.respondGroup(w, r, groupResponse{Sector: sector}, members)
}

func (s *server) handleSubsector(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sector, subIndustry := vars["sector"], vars["subIndustry"]
	if !s.dataset.HasSector(sector) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown sector: " + sector})
		return
	}
	members := s.dataset.BySubIndustry(sector, subIndustry)
	if len(members) == 0 {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown sub-industry: " + subIndustry})
		return
	}
	s.respondGroup(w, r, groupResponse{Sector: sector, SubIndustry: subIndustry}, members)
}

// respondGroup acquires quotes for a constituent slice and zips them back
// positionally. The zip is valid because batch results preserve input order.
func (s *server) respondGroup(w http.ResponseWriter, r *http.Request, resp groupResponse, members []constituents.Constituent) {
	limit := s.limitParam(r)
	if len(members) > limit {
		members = members[:limit]
	}
	symbols := make([]string, len(members))
	for i, m := range members {
		symbols[i] = m.Symbol
	}

	res, err := s.quotes.Acquire(r.Context(), symbols, boolParam(r, "refresh"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rows := make([]companyRow, len(members))
	allFailed := true
	for i, m := range members {
		item := res.Items[i]
		rows[i] = companyRow{
			Symbol:      m.Symbol,
			Name:        m.Name,
			SubIndustry: m.SubIndustry,
			Quote:       item.Quote,
			Status:      item.Status,
			Error:       item.Error,
			Source:      item.Source,
		}
		if item.Status != quote.StatusError {
			allFailed = false
		}
	}

	// Nothing served, not even stale history: surface the throttle to the client
	if res.Meta.RateLimited && res.Meta.CacheHits == 0 && allFailed {
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limited by upstream provider"})
		return
	}

	resp.UpdatedAt = s.now().UTC()
	resp.Companies = rows
	resp.Meta = res.Meta
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing q query param"})
		return
	}
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	results := s.dataset.Search(q, limit)
	if results == nil {
		results = []constituents.Constituent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": results})
}

func (s *server) limitParam(r *http.Request) int {
	limit := s.defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > s.maxCompanies {
		limit = s.maxCompanies
	}
	return limit
}

func boolParam(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.log.Error("encoding response", zap.Error(err))
	}
}
