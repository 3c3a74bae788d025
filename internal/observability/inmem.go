package observability

import "sync"

// Inmem keeps the last N observations plus running totals. Enough for the
// debug endpoints and tests; a real metrics backend can replace it behind
// the Metrics interface.
type Inmem struct {
	mu     sync.Mutex
	last   []any
	max    int
	totals struct {
		cacheHits, cacheMiss   int
		checkoutOK, checkoutKO int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{max: max}
}

func (m *Inmem) push(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveBootstrap(outcome string, durMs float64) {
	m.push(struct {
		Kind    string
		Outcome string
		Dur     float64
	}{"bootstrap", outcome, durMs})
}

func (m *Inmem) ObserveProfileSave(durMs float64, ok bool) {
	m.push(struct {
		Kind string
		Dur  float64
		OK   bool
	}{"profile_save", durMs, ok})
}

func (m *Inmem) ObserveCheckout(durMs float64, ok bool) {
	m.mu.Lock()
	if ok {
		m.totals.checkoutOK++
	} else {
		m.totals.checkoutKO++
	}
	m.mu.Unlock()

	m.push(struct {
		Kind string
		Dur  float64
		OK   bool
	}{"checkout", durMs, ok})
}

func (m *Inmem) ObserveCatalog(source string, cacheMs, dbMs float64) {
	m.push(struct {
		Kind          string
		Source        string
		CacheMs, DbMs float64
	}{"catalog", source, cacheMs, dbMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(struct {
		Kind          string
		Method, Route string
		Status        int
		Dur           float64
	}{"http", method, route, status, durMs})
}

func (m *Inmem) ObserveNotify(durMs float64, ok bool) {
	m.push(struct {
		Kind string
		Dur  float64
		OK   bool
	}{"notify", durMs, ok})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.cacheHits++
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.cacheMiss++
}

func (m *Inmem) CacheTotals() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheHits, m.totals.cacheMiss
}

func (m *Inmem) CheckoutTotals() (ok, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.checkoutOK, m.totals.checkoutKO
}

func (m *Inmem) Last() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.last))
	copy(out, m.last)
	return out
}
