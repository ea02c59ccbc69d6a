package dsp

import "sync"

// Band identifies a canonical analysis band.
type Band struct {
	LowHz  float64
	HighHz float64
	Order  int
}

// Canonical bands used by the analysis pipelines.
var (
	// GutBand covers the typical bowel-sound range.
	GutBand = Band{LowHz: 100, HighHz: 450, Order: 3}

	// HeartBand covers the S1/S2 heart-sound range.
	HeartBand = Band{LowHz: 20, HighHz: 80, Order: 3}
)

type filterKey struct {
	band       Band
	sampleRate float64
}

// FilterCache memoizes filter designs by (band, sample rate). Filters
// are immutable once built, so cache hits hand out the identical
// instance; callers may rely on pointer equality to detect hits. Each
// cache is an independently owned object so tests can construct
// isolated instances.
type FilterCache struct {
	mu      sync.Mutex
	filters map[filterKey]*ButterworthFilter
}

// NewFilterCache creates an empty filter cache.
func NewFilterCache() *FilterCache {
	return &FilterCache{
		filters: make(map[filterKey]*ButterworthFilter),
	}
}

// Get returns the cached filter for the band and sample rate, designing
// it on first use. Design errors are not cached.
func (c *FilterCache) Get(band Band, sampleRate float64) (*ButterworthFilter, error) {
	key := filterKey{band: band, sampleRate: sampleRate}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.filters[key]; ok {
		return f, nil
	}

	f, err := DesignBandpass(band.LowHz, band.HighHz, band.Order, sampleRate)
	if err != nil {
		return nil, err
	}
	c.filters[key] = f
	return f, nil
}
