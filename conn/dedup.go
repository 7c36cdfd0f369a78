package conn

import lru "github.com/hashicorp/golang-lru/v2"

// dedupCapacity bounds the packet-number de-duplication set. An
// unbounded set would grow for the life of the connection; an LRU
// cache over packet_number gives a sliding window instead.
const dedupCapacity = 4096

// dedupSet tracks packet numbers already delivered to streams so a
// re-delivered (duplicate) short-header packet is never applied twice.
type dedupSet struct {
	cache *lru.Cache[uint32, struct{}]
}

func newDedupSet(capacity int) *dedupSet {
	c, err := lru.New[uint32, struct{}](capacity)
	if err != nil {
		// Only returns an error for a non-positive size; dedupCapacity
		// is a package constant known to be valid.
		panic(err)
	}
	return &dedupSet{cache: c}
}

// seen reports whether pn has already been recorded, and records it if
// not. The first call for a given pn returns false.
func (d *dedupSet) seen(pn uint32) bool {
	if _, ok := d.cache.Get(pn); ok {
		return true
	}
	d.cache.Add(pn, struct{}{})
	return false
}
