package memory

import (
	lru "github.com/hashicorp/golang-lru"
)

const walkCacheSize = 64

// walkCache remembers which leaf slot backs a virtual page so user accesses
// can skip the table walk. Entries are slot pointers, not translations: the
// flags are re-read on every access, so a cached slot whose entry was cleared
// still faults.
type walkCache struct {
	cache *lru.ARCCache
}

func newWalkCache() (*walkCache, error) {
	cache, err := lru.NewARC(walkCacheSize)
	if err != nil {
		return nil, err
	}

	return &walkCache{cache: cache}, nil
}

func (w *walkCache) lookup(vpn uint64) (*PTE, bool) {
	val, ok := w.cache.Get(vpn)
	if !ok {
		return nil, false
	}

	return val.(*PTE), true
}

func (w *walkCache) add(vpn uint64, slot *PTE) {
	w.cache.Add(vpn, slot)
}

func (w *walkCache) flush(vpn uint64) {
	w.cache.Remove(vpn)
}

func (w *walkCache) flushAll() {
	w.cache.Purge()
}
