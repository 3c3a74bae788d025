package observability

type Metrics interface {
	ObserveBootstrap(outcome string, durMs float64)
	ObserveProfileSave(durMs float64, ok bool)
	ObserveCheckout(durMs float64, ok bool)
	ObserveCatalog(source string, cacheMs, dbMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	ObserveNotify(durMs float64, ok bool)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveBootstrap(string, float64)          {}
func (Noop) ObserveProfileSave(float64, bool)          {}
func (Noop) ObserveCheckout(float64, bool)             {}
func (Noop) ObserveCatalog(string, float64, float64)   {}
func (Noop) ObserveHTTP(string, string, int, float64)  {}
func (Noop) ObserveNotify(float64, bool)               {}
func (Noop) IncCacheHit()                              {}
func (Noop) IncCacheMiss()                             {}
