package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"sectordash/internal/ratelimit"
)

// Contract violations. These signal caller bugs and fail the whole batch;
// runtime conditions (denials, upstream faults) never do.
var (
	ErrEmptyBatch      = errors.New("empty symbol list")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
)

// Upstream supplies one quote per symbol per call. Single attempt, no
// internal retry; the orchestrator treats any error as a failed attempt.
type Upstream interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

// Service multiplexes quote requests onto the rate-limited upstream,
// deciding per symbol between fresh cache, a live fetch, and stale
// fallback. The limiter and cache are shared across concurrent batches;
// the gate bounds simultaneous in-flight upstream calls.
type Service struct {
	upstream Upstream
	cache    *Cache
	limiter  *ratelimit.TokenBucket
	gate     *semaphore.Weighted
	log      *zap.Logger
}

// NewService wires the orchestrator. maxConcurrent bounds in-flight
// upstream calls independently of the limiter's per-minute budget.
func NewService(upstream Upstream, cache *Cache, limiter *ratelimit.TokenBucket, maxConcurrent int, log *zap.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		upstream: upstream,
		cache:    cache,
		limiter:  limiter,
		gate:     semaphore.NewWeighted(int64(maxConcurrent)),
		log:      log,
	}
}

// Acquire resolves each requested symbol in order. Symbols with a fresh
// cache entry (unless refresh is set) resolve synchronously; the rest are
// fetched concurrently up to the gate limit. Items preserve the input
// order regardless of completion order. The returned error is non-nil only
// for contract violations: empty input or duplicate symbols.
func (s *Service) Acquire(ctx context.Context, symbols []string, refresh bool) (BatchResult, error) {
	if len(symbols) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			return BatchResult{}, fmt.Errorf("%w: %s", ErrDuplicateSymbol, sym)
		}
		seen[sym] = struct{}{}
	}

	items := make([]Result, len(symbols))
	var cacheHits int
	var apiCalls atomic.Int64
	var rateLimited atomic.Bool

	type candidate struct {
		idx    int
		symbol string
	}
	candidates := make([]candidate, 0, len(symbols))

	for i, sym := range symbols {
		if !refresh {
			if e, f := s.cache.Get(sym); f == Fresh {
				q := e.Quote
				items[i] = Result{Symbol: sym, Quote: &q, Status: StatusOK, Source: SourceCache}
				cacheHits++
				continue
			}
		}
		candidates = append(candidates, candidate{idx: i, symbol: sym})
	}

	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(c candidate) {
			defer wg.Done()
			items[c.idx] = s.fetchOne(ctx, c.symbol, &apiCalls, &rateLimited)
		}(c)
	}
	wg.Wait()

	meta := Meta{
		Requested:   len(symbols),
		CacheHits:   cacheHits,
		APICalls:    int(apiCalls.Load()),
		RateLimited: rateLimited.Load(),
	}
	for _, it := range items {
		if it.Status == StatusOK || it.Status == StatusStale {
			meta.Returned++
		}
	}
	return BatchResult{Items: items, Meta: meta}, nil
}

// fetchOne resolves a single fetch candidate. The limiter is consulted
// before the gate and before any network traffic, so denied requests cost
// no upstream capacity.
func (s *Service) fetchOne(ctx context.Context, symbol string, apiCalls *atomic.Int64, rateLimited *atomic.Bool) Result {
	if !s.limiter.TryAcquire(1) {
		rateLimited.Store(true)
		if e, f := s.cache.Get(symbol); f != Miss {
			s.log.Info("rate limited, serving stale cache",
				zap.String("symbol", symbol))
			q := e.Quote
			return Result{Symbol: symbol, Quote: &q, Status: StatusStale, Source: SourceStaleCache}
		}
		st := s.limiter.Stats()
		s.log.Warn("rate limited with no cached data",
			zap.String("symbol", symbol),
			zap.Float64("tokens", st.Tokens),
			zap.Float64("capacity", st.Capacity))
		return Result{Symbol: symbol, Status: StatusError, Error: "rate limited, no cached data"}
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		// Batch cancelled while queued for a slot; no upstream call was made.
		return s.fallback(symbol, err)
	}
	defer s.gate.Release(1)

	apiCalls.Add(1)
	q, err := s.upstream.FetchQuote(ctx, symbol)
	if err != nil {
		s.log.Warn("upstream fetch failed",
			zap.String("symbol", symbol),
			zap.String("upstream", s.upstream.Name()),
			zap.Error(err))
		return s.fallback(symbol, err)
	}

	s.cache.Put(symbol, q)
	s.log.Debug("quote fetched from upstream",
		zap.String("symbol", symbol),
		zap.String("upstream", s.upstream.Name()))
	return Result{Symbol: symbol, Quote: &q, Status: StatusOK, Source: SourceUpstream}
}

// fallback resolves a failed attempt: stale history if any exists,
// otherwise a per-symbol error carrying the cause.
func (s *Service) fallback(symbol string, cause error) Result {
	if e, f := s.cache.Get(symbol); f != Miss {
		s.log.Info("upstream unavailable, serving stale cache",
			zap.String("symbol", symbol))
		q := e.Quote
		return Result{Symbol: symbol, Quote: &q, Status: StatusStale, Source: SourceStaleCache}
	}
	return Result{Symbol: symbol, Status: StatusError, Error: cause.Error()}
}
