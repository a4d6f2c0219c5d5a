package eviction

import (
	"container/list"
	"sync"
)

// NameLFRU is the registry name of the LFRU policy.
const NameLFRU = "lfru"

// LFRU is a hybrid least-frequently / least-recently used policy.
//
// Victims are chosen in priority order:
//  1. the largest stale entry;
//  2. among unpinned entries, the lowest frequency, ties broken by the
//     least recently touched;
//  3. when forced, the same rule over every entry, pinned included.
//
// Keys the policy has never been told about count as frequency 0 and as
// older than any tracked key.
type LFRU struct {
	mu        sync.Mutex
	frequency map[string]int
	elements  map[string]*list.Element
	recency   *list.List // front is least recently touched
}

// NewLFRU creates an empty LFRU policy.
func NewLFRU() *LFRU {
	return &LFRU{
		frequency: make(map[string]int),
		elements:  make(map[string]*list.Element),
		recency:   list.New(),
	}
}

// Name implements Policy.
func (p *LFRU) Name() string {
	return NameLFRU
}

// OnAdmit resets the key's frequency to 1 and makes it the most recently touched.
func (p *LFRU) OnAdmit(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frequency[key] = 1
	p.touchLocked(key)
}

// OnAccess increments the key's frequency and makes it the most recently
// touched. Keys that were never admitted are ignored.
func (p *LFRU) OnAccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.frequency[key]; !ok {
		return
	}
	p.frequency[key]++
	p.touchLocked(key)
}

// OnRemove forgets the key.
func (p *LFRU) OnRemove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.frequency, key)
	if elem, ok := p.elements[key]; ok {
		p.recency.Remove(elem)
		delete(p.elements, key)
	}
}

// Frequency implements Policy.
func (p *LFRU) Frequency(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frequency[key]
}

// SelectVictim implements Policy.
func (p *LFRU) SelectVictim(candidates []Candidate, forced bool) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rank := p.rankLocked()

	// Stale entries go first, biggest first.
	best := -1
	for i, c := range candidates {
		if !c.Stale {
			continue
		}
		if best < 0 || c.Size > candidates[best].Size ||
			(c.Size == candidates[best].Size && p.olderLocked(c.Key, candidates[best].Key, rank)) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best].Key, nil
	}

	if key, ok := p.coldestLocked(candidates, rank, false); ok {
		return key, nil
	}
	if forced {
		if key, ok := p.coldestLocked(candidates, rank, true); ok {
			return key, nil
		}
	}
	return "", ErrAllPinned
}

// coldestLocked returns the lowest-frequency candidate, oldest first.
func (p *LFRU) coldestLocked(candidates []Candidate, rank map[string]int, includePinned bool) (string, bool) {
	best := -1
	bestFreq := 0
	for i, c := range candidates {
		if c.Pinned && !includePinned {
			continue
		}
		freq := p.frequency[c.Key]
		if best < 0 || freq < bestFreq ||
			(freq == bestFreq && p.olderLocked(c.Key, candidates[best].Key, rank)) {
			best = i
			bestFreq = freq
		}
	}
	if best < 0 {
		return "", false
	}
	return candidates[best].Key, true
}

// rankLocked maps every tracked key to its position in recency order.
func (p *LFRU) rankLocked() map[string]int {
	rank := make(map[string]int, p.recency.Len())
	i := 0
	for elem := p.recency.Front(); elem != nil; elem = elem.Next() {
		rank[elem.Value.(string)] = i
		i++
	}
	return rank
}

// olderLocked reports whether a was touched before b. Untracked keys are
// older than tracked ones and order among themselves by key.
func (p *LFRU) olderLocked(a, b string, rank map[string]int) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return !okA
	default:
		return a < b
	}
}

func (p *LFRU) touchLocked(key string) {
	if elem, ok := p.elements[key]; ok {
		p.recency.MoveToBack(elem)
		return
	}
	p.elements[key] = p.recency.PushBack(key)
}
