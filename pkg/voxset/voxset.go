// Package voxset provides a concurrent set of integer identifiers (linear
// voxel indices or face identifiers) supporting idempotent insertion and
// membership tests from many goroutines at once.
package voxset

import (
	"runtime"
	"sort"
	"sync"
)

// Membership is the read side of a set.
type Membership interface {
	Has(v int) bool
}

type shard struct {
	mu sync.RWMutex
	m  map[int]struct{}
}

// Set is a sharded concurrent set. The zero value is not usable; call New.
type Set struct {
	shards []shard
	mask   uint64
}

// New returns an empty set. sizeHint is the expected number of members and
// only affects preallocation.
func New(sizeHint int) *Set {
	n := 1
	for n < 4*runtime.GOMAXPROCS(0) {
		n <<= 1
	}
	s := &Set{shards: make([]shard, n), mask: uint64(n - 1)}
	per := sizeHint / n
	for i := range s.shards {
		s.shards[i].m = make(map[int]struct{}, per)
	}
	return s
}

// Of returns a set holding vs.
func Of(vs ...int) *Set {
	s := New(len(vs))
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

func (s *Set) shardFor(v int) *shard {
	// Fibonacci hashing spreads neighbouring indices across shards.
	h := uint64(v) * 0x9E3779B97F4A7C15
	return &s.shards[(h>>32)&s.mask]
}

// Add inserts v and reports whether it was newly added.
func (s *Set) Add(v int) bool {
	sh := s.shardFor(v)
	sh.mu.Lock()
	_, ok := sh.m[v]
	if !ok {
		sh.m[v] = struct{}{}
	}
	sh.mu.Unlock()
	return !ok
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v int) bool {
	sh := s.shardFor(v)
	sh.mu.Lock()
	_, ok := sh.m[v]
	if ok {
		delete(sh.m, v)
	}
	sh.mu.Unlock()
	return ok
}

// Clear removes every member.
func (s *Set) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.m = make(map[int]struct{})
		sh.mu.Unlock()
	}
}

// Has reports whether v is in the set.
func (s *Set) Has(v int) bool {
	sh := s.shardFor(v)
	sh.mu.RLock()
	_, ok := sh.m[v]
	sh.mu.RUnlock()
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}

// Members returns every member in unspecified order.
func (s *Set) Members() []int {
	out := make([]int, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for v := range sh.m {
			out = append(out, v)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Sorted returns every member in ascending order.
func (s *Set) Sorted() []int {
	out := s.Members()
	sort.Ints(out)
	return out
}

// Range calls fn for each member until fn returns false. The set must not be
// modified from fn.
func (s *Set) Range(fn func(v int) bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for v := range sh.m {
			if !fn(v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Equal reports whether s and o have the same members.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	equal := true
	s.Range(func(v int) bool {
		equal = o.Has(v)
		return equal
	})
	return equal
}
