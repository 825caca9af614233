package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// A simple skip list keyed by (points desc, retailer asc) to achieve
// O(log n) updates.

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    Entry
	next [maxLevel]*node
}

type SkipList struct {
	mu         sync.RWMutex
	head       *node
	lvl        int
	byRetailer map[string]*node
	rng        *rand.Rand
}

func NewSkipList() *SkipList {
	// Use crypto/rand to generate a secure seed
	var seed [8]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		// Fallback to zero seed if crypto/rand fails (extremely unlikely)
		seed = [8]byte{}
	}

	return &SkipList{
		head:       &node{},
		lvl:        1,
		byRetailer: map[string]*node{},
		rng:        rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:])))),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b Entry) bool {
	if a.Points == b.Points {
		return a.Retailer < b.Retailer
	}
	return a.Points > b.Points // higher points first
}

// Update inserts or moves the retailer to a new total.
func (s *SkipList) Update(retailer string, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byRetailer[retailer]; ok {
		// remove old node
		s.removeLocked(retailer, old.e)
	}
	e := Entry{Retailer: retailer, Points: points}
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byRetailer[retailer] = n
}

func (s *SkipList) removeLocked(retailer string, e Entry) {
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.Retailer != retailer {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byRetailer, retailer)
	for s.lvl > 1 && s.head.next[s.lvl-1] == nil {
		s.lvl--
	}
}

func (s *SkipList) Remove(retailer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byRetailer[retailer]; ok {
		s.removeLocked(retailer, n.e)
	}
}

func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, n)
	cur := s.head.next[0]
	for cur != nil && len(out) < n {
		out = append(out, cur.e)
		cur = cur.next[0]
	}
	return out
}

func (s *SkipList) Get(retailer string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byRetailer[retailer]; ok {
		return n.e, true
	}
	return Entry{}, false
}

var _ Board = (*SkipList)(nil)
