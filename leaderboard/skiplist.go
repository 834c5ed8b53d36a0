package leaderboard

import (
	"bytes"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// SkipList is an indexable skip list ordered by score descending, then user id.
// Every forward pointer carries its span (the number of entries it skips) so
// rank lookups and offset scans are O(log n) as well.

const (
	maxLevel = 16
	pFactor  = 0.25
)

type node struct {
	e    Entry
	next []*node
	span []int
}

func newNode(e Entry, level int) *node {
	return &node{e: e, next: make([]*node, level), span: make([]int, level)}
}

type SkipList struct {
	mu     sync.RWMutex
	head   *node
	level  int
	length int
	byUser map[uuid.UUID]Entry
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   newNode(Entry{}, maxLevel),
		level:  1,
		byUser: map[uuid.UUID]Entry{},
	}
}

func randomLevel() int {
	lvl := 1
	for lvl < maxLevel && rand.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b Entry) bool {
	if a.Score == b.Score {
		return bytes.Compare(a.User[:], b.User[:]) < 0
	}
	return a.Score > b.Score
}

// Update inserts user or moves it to score.
func (s *SkipList) Update(user uuid.UUID, score uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[user]; ok {
		if old.Score == score {
			return
		}
		s.deleteLocked(old)
	}
	s.insertLocked(Entry{User: user, Score: score})
}

func (s *SkipList) insertLocked(e Entry) {
	var update [maxLevel]*node
	var rank [maxLevel]int
	x := s.head
	for i := s.level - 1; i >= 0; i-- {
		if i < s.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && less(x.next[i].e, e) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	lvl := randomLevel()
	if lvl > s.level {
		for i := s.level; i < lvl; i++ {
			rank[i] = 0
			update[i] = s.head
			update[i].span[i] = s.length
		}
		s.level = lvl
	}

	n := newNode(e, lvl)
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
		n.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}
	for i := lvl; i < s.level; i++ {
		update[i].span[i]++
	}
	s.length++
	s.byUser[e.User] = e
}

func (s *SkipList) deleteLocked(e Entry) {
	var update [maxLevel]*node
	x := s.head
	for i := s.level - 1; i >= 0; i-- {
		for x.next[i] != nil && less(x.next[i].e, e) {
			x = x.next[i]
		}
		update[i] = x
	}
	target := x.next[0]
	if target == nil || target.e != e {
		return
	}
	for i := 0; i < s.level; i++ {
		if update[i].next[i] == target {
			update[i].span[i] += target.span[i] - 1
			update[i].next[i] = target.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for s.level > 1 && s.head.next[s.level-1] == nil {
		s.level--
	}
	s.length--
	delete(s.byUser, e.User)
}

func (s *SkipList) Remove(user uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byUser[user]; ok {
		s.deleteLocked(e)
	}
}

// TopN returns the n best entries.
func (s *SkipList) TopN(n int) []Entry {
	return s.Range(0, n)
}

// Range returns up to n entries starting at the 0-based offset.
func (s *SkipList) Range(offset, n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || offset < 0 || offset >= s.length {
		return nil
	}
	// walk to the node holding rank offset (the head has rank 0)
	x := s.head
	traversed := 0
	for i := s.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] <= offset {
			traversed += x.span[i]
			x = x.next[i]
		}
	}
	out := make([]Entry, 0, min(n, s.length-offset))
	for cur := x.next[0]; cur != nil && len(out) < n; cur = cur.next[0] {
		out = append(out, cur.e)
	}
	return out
}

func (s *SkipList) Get(user uuid.UUID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUser[user]
	return e, ok
}

// Rank is the 1-based position of user.
func (s *SkipList) Rank(user uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUser[user]
	if !ok {
		return 0, false
	}
	rank := 0
	x := s.head
	for i := s.level - 1; i >= 0; i-- {
		for x.next[i] != nil && !less(e, x.next[i].e) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != s.head && x.e == e {
			return rank, true
		}
	}
	return 0, false
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.length
}

var _ Board = (*SkipList)(nil)
