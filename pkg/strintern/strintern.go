// Package strintern implements the VM's string pool: a content-addressed
// store of immutable strings where pointer equality implies content
// equality. Strings are owned by the pool, not by the GC's mark/sweep
// loop — they live for the lifetime of the Pool.
package strintern

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cespare/xxhash/v2"
)

// String is an interned, immutable string. Two *String pointers are equal
// iff their content is byte-identical.
type String struct {
	data []byte
}

// Bytes returns the string's raw bytes. Callers must not mutate the slice.
func (s *String) Bytes() []byte { return s.data }

// String returns the string's content as a Go string (a copy).
func (s *String) String() string { return string(s.data) }

// Len returns the byte length of the string.
func (s *String) Len() int { return len(s.data) }

// Pool is the VM-wide interning table. The canonical *String objects are
// kept in a Go map keyed by xxhash, and that map alone answers the "does
// this content already exist" check. Each new string's prefix is also
// recorded in a fastcache instance, which Intern never reads.
type Pool struct {
	mu      sync.Mutex
	fast    *fastcache.Cache
	buckets map[uint64][]*String
}

// New creates a pool. maxBytes sizes the fastcache instance;
// 0 selects a small default suitable for a single embedded VM instance.
func New(maxBytes int) *Pool {
	if maxBytes <= 0 {
		maxBytes = 4 << 20 // 4 MiB
	}
	return &Pool{
		fast:    fastcache.New(maxBytes),
		buckets: make(map[uint64][]*String),
	}
}

// Intern returns the canonical *String for the given bytes, creating one
// if no identical string has been interned yet.
func (p *Pool) Intern(b []byte) *String {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := xxhash.Sum64(b)

	// The bucket walk finds the exact *String pointer for this content.
	if bucket, ok := p.buckets[h]; ok {
		for _, s := range bucket {
			if string(s.data) == string(b) {
				return s
			}
		}
	}

	owned := make([]byte, len(b))
	copy(owned, b)
	s := &String{data: owned}
	p.buckets[h] = append(p.buckets[h], s)
	p.fast.Set(owned[:min(len(owned), 64)], []byte{1})
	return s
}

// InternString is a convenience wrapper over Intern for Go strings.
func (p *Pool) InternString(s string) *String {
	return p.Intern([]byte(s))
}

// Len reports how many distinct strings are currently interned.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, bucket := range p.buckets {
		n += len(bucket)
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
