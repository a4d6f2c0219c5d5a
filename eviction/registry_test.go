package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantFound bool
	}{
		{"lfru", "lfru", NameLFRU, true},
		{"upper case", "LFRU", NameLFRU, true},
		{"padded", "  lfru ", NameLFRU, true},
		{"none", "none", NameNone, true},
		{"unknown falls back to none", "arc", NameNone, false},
		{"empty falls back to none", "", NameNone, false},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, found := r.Lookup(tt.input)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestRegistry_FreshInstances(t *testing.T) {
	r := NewRegistry()
	a := r.New(NameLFRU)
	b := r.New(NameLFRU)

	a.OnAdmit("k")
	assert.Equal(t, 1, a.Frequency("k"))
	assert.Zero(t, b.Frequency("k"))
}

type fifo struct{ None }

func (*fifo) Name() string { return "fifo" }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("FIFO", func() Policy { return &fifo{} })

	assert.Equal(t, []string{"fifo", NameLFRU, NameNone}, r.Names())
	p, found := r.Lookup("fifo")
	assert.True(t, found)
	assert.Equal(t, "fifo", p.Name())
}

func TestNone(t *testing.T) {
	p := NewNone()
	candidates := []Candidate{{Key: "a"}, {Key: "b", Stale: true}}

	_, err := p.SelectVictim(candidates, false)
	assert.ErrorIs(t, err, ErrVoluntaryDisabled)

	got, err := p.SelectVictim(candidates, true)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	_, err = p.SelectVictim(nil, true)
	assert.ErrorIs(t, err, ErrNoCandidates)

	p.OnAdmit("a")
	p.OnAccess("a")
	p.OnRemove("a")
	assert.Equal(t, 1, p.Frequency("a"))
	assert.Equal(t, 1, p.Frequency("anything"))
}
