package dedupe

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter remembers the most recent capacity keys that were handled. Seen is
// exact for every remembered key: the bloom filter only answers "definitely
// not seen" early, and a positive answer is confirmed against the key set.
// Keys older than the last capacity marks are forgotten.
type Filter struct {
	mu       sync.Mutex
	capacity int
	fp       float64
	keys     map[string]struct{}
	order    []string // ring of remembered keys, oldest at next
	next     int
	bf       *bloom.BloomFilter
	evicted  int
}

// New returns a Filter remembering up to capacity keys. fp sizes the bloom
// filter in front of the key set.
func New(capacity int, fp float64) *Filter {
	if capacity < 1 {
		capacity = 1
	}
	return &Filter{
		capacity: capacity,
		fp:       fp,
		keys:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
		bf:       bloom.NewWithEstimates(uint(capacity), fp),
	}
}

// Seen reports whether key is among the remembered keys.
func (f *Filter) Seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bf.TestString(key) {
		return false
	}
	_, ok := f.keys[key]
	return ok
}

// Mark records key as handled, forgetting the oldest key when full.
func (f *Filter) Mark(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return
	}

	if len(f.order) < f.capacity {
		f.order = append(f.order, key)
	} else {
		delete(f.keys, f.order[f.next])
		f.order[f.next] = key
		f.next = (f.next + 1) % f.capacity
		f.evicted++
	}
	f.keys[key] = struct{}{}
	f.bf.AddString(key)

	// Evicted keys still set bits; rebuild once they match the live ones.
	if f.evicted >= f.capacity {
		f.bf.ClearAll()
		for k := range f.keys {
			f.bf.AddString(k)
		}
		f.evicted = 0
	}
}

// Len returns the number of remembered keys.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}
