package eviction

// NameNone is the registry name of the no-op policy.
const NameNone = "none"

// None never evicts voluntarily. Forced selection returns the first
// candidate, which with the cache's key-sorted snapshots is the smallest key.
type None struct{}

// NewNone returns the no-op policy.
func NewNone() *None {
	return &None{}
}

// Name implements Policy.
func (*None) Name() string { return NameNone }

// OnAdmit implements Policy.
func (*None) OnAdmit(string) {}

// OnAccess implements Policy.
func (*None) OnAccess(string) {}

// OnRemove implements Policy.
func (*None) OnRemove(string) {}

// Frequency always reports 1.
func (*None) Frequency(string) int { return 1 }

// SelectVictim implements Policy.
func (*None) SelectVictim(candidates []Candidate, forced bool) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	if !forced {
		return "", ErrVoluntaryDisabled
	}
	return candidates[0].Key, nil
}
