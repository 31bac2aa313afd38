package anyctc

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// A Labeling is a decoded label sequence (blanks removed
// and repeats merged) along with the log probability the
// search assigned to it.
type Labeling struct {
	Label   []int
	LogProb float64
}

// BeamSearch runs a CTC prefix beam search on a sequence
// of log-probability vectors and returns the most likely
// labeling.
//
// Every path that collapses to the same labeling is merged
// into a single beam entry, so a labeling's score is the
// log of the total probability of all its surviving paths.
// After each timestep, only the c.BeamWidth most likely
// labelings are kept.
// Ties are broken in favor of the labeling which was
// proposed first.
//
// An empty sequence yields an empty labeling.
// If every labeling in the final beam has a probability of
// zero (or a NaN score), ErrBeamCollapsed is returned.
func BeamSearch(seq [][]float64, c *BeamConfig) (*Labeling, error) {
	var numClasses int
	if len(seq) > 0 {
		numClasses = len(seq[0])
	}
	if err := c.Validate(numClasses); err != nil {
		return nil, err
	}
	for t, x := range seq {
		if len(x) != numClasses {
			return nil, fmt.Errorf("%w: timestep %d has %d classes (expected %d)",
				ErrInvalidConfig, t, len(x), numClasses)
		}
	}

	beam := []*beamEntry{{Prob: labelProb{Blank: 0, NoBlank: math.Inf(-1)}}}
	for _, next := range seq {
		beam = c.step(beam, next)
	}

	best := beam[0]
	total := best.Prob.Total()
	if math.IsNaN(total) || math.IsInf(total, -1) {
		return nil, fmt.Errorf("beam search over %d timesteps: %w (best score %v)",
			len(seq), ErrBeamCollapsed, total)
	}
	return &Labeling{
		Label:   append([]int{}, best.Prefix...),
		LogProb: total,
	}, nil
}

// step extends every prefix in the beam by one timestep
// and prunes the result back down to the beam width.
func (b *BeamConfig) step(beam []*beamEntry, next []float64) []*beamEntry {
	nb := newNextBeam(len(beam) * len(next))
	for class, p := range next {
		for _, e := range beam {
			if class == b.Blank {
				same := nb.same(e)
				same.Prob.Blank = addLogs(same.Prob.Blank, e.Prob.Total()+p)
				continue
			}
			ext := nb.extension(e, class)
			if class == e.last() {
				// A repeated label only forms a new label if
				// a blank separated it from the previous one.
				ext.Prob.NoBlank = addLogs(ext.Prob.NoBlank,
					e.Prob.Blank+p+b.InsertionBonus)
				same := nb.same(e)
				same.Prob.NoBlank = addLogs(same.Prob.NoBlank, e.Prob.NoBlank+p)
			} else {
				ext.Prob.NoBlank = addLogs(ext.Prob.NoBlank,
					e.Prob.Total()+p+b.InsertionBonus)
			}
		}
	}
	return nb.prune(b.BeamWidth)
}

// labelProb represents the probability of a labeling,
// split up into the probability of the labeling without a
// trailing blank and with a trailing blank.
type labelProb struct {
	Blank   float64
	NoBlank float64
}

func zeroLabelProb() labelProb {
	return labelProb{Blank: math.Inf(-1), NoBlank: math.Inf(-1)}
}

// Total combines both explanations of the labeling.
func (l labelProb) Total() float64 {
	return addLogs(l.Blank, l.NoBlank)
}

// A beamEntry is one labeling in the beam.
//
// Prefix slices are never modified once an entry has been
// created, so entries from different timesteps may safely
// share them.
type beamEntry struct {
	Prefix []int
	Key    string
	Prob   labelProb

	total float64
}

func (b *beamEntry) last() int {
	if len(b.Prefix) == 0 {
		return -1
	}
	return b.Prefix[len(b.Prefix)-1]
}

// nextBeam accumulates the entries for the next timestep,
// merging proposals that share a prefix.
type nextBeam struct {
	entries []*beamEntry
	index   map[string]*beamEntry
}

func newNextBeam(capacity int) *nextBeam {
	return &nextBeam{
		entries: make([]*beamEntry, 0, capacity),
		index:   make(map[string]*beamEntry, capacity),
	}
}

// same gets the next-step entry for e's own prefix.
func (n *nextBeam) same(e *beamEntry) *beamEntry {
	if res, ok := n.index[e.Key]; ok {
		return res
	}
	return n.insert(e.Key, e.Prefix)
}

// extension gets the next-step entry for e's prefix with
// label appended.
func (n *nextBeam) extension(e *beamEntry, label int) *beamEntry {
	key := extendKey(e.Key, label)
	if res, ok := n.index[key]; ok {
		return res
	}
	prefix := make([]int, len(e.Prefix), len(e.Prefix)+1)
	copy(prefix, e.Prefix)
	return n.insert(key, append(prefix, label))
}

func (n *nextBeam) insert(key string, prefix []int) *beamEntry {
	res := &beamEntry{Prefix: prefix, Key: key, Prob: zeroLabelProb()}
	n.index[key] = res
	n.entries = append(n.entries, res)
	return res
}

// prune sorts the entries from most to least probable and
// keeps at most width of them.
func (n *nextBeam) prune(width int) []*beamEntry {
	for _, e := range n.entries {
		e.total = e.Prob.Total()
	}
	sort.Stable(entrySorter(n.entries))
	if len(n.entries) > width {
		return n.entries[:width]
	}
	return n.entries
}

// extendKey computes the map key of a prefix from the key
// of its parent.
// Each label is varint-encoded, so no two distinct
// prefixes share a key.
func extendKey(parent string, label int) string {
	buf := make([]byte, len(parent), len(parent)+binary.MaxVarintLen64)
	copy(buf, parent)
	return string(binary.AppendUvarint(buf, uint64(label)))
}

// An entrySorter sorts beam entries from most to least
// probable.
// NaN scores sort after every other score.
type entrySorter []*beamEntry

func (e entrySorter) Len() int {
	return len(e)
}

func (e entrySorter) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

func (e entrySorter) Less(i, j int) bool {
	a, b := e[i].total, e[j].total
	return a > b || (math.IsNaN(b) && !math.IsNaN(a))
}
