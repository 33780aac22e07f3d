package shortid

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	defaultFilterCapacity = 1_000_000
	defaultFilterFPRate   = 0.001
)

// TakenFilter remembers identifiers known to be stored so that generated
// candidates which are probably taken can be skipped before hitting the
// store. A false positive only costs another draw; a miss still ends in the
// store's unique constraint.
type TakenFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewTakenFilter sizes the filter for capacity identifiers at the given false
// positive rate. Zero values fall back to defaults.
func NewTakenFilter(capacity uint, fpRate float64) *TakenFilter {
	if capacity == 0 {
		capacity = defaultFilterCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = defaultFilterFPRate
	}
	return &TakenFilter{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// Add marks id as taken.
func (f *TakenFilter) Add(id string) {
	f.mu.Lock()
	f.filter.AddString(id)
	f.mu.Unlock()
}

// MaybeTaken reports whether id may already be stored.
func (f *TakenFilter) MaybeTaken(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(id)
}
