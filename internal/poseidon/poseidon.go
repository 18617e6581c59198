// Package poseidon implements the fixed-arity Poseidon sponge used to
// derive burn addresses, nullifiers, and coin commitments. The permutation
// operates over the BN254 scalar field (internal/fp).
//
// The exact round constants and MDS matrix are a contract with the
// compiled circuit and are not recoverable from this repository's inputs.
// Hash and the HashN wrappers always use DefaultPermutation, a
// deterministically generated stand-in that keeps the package
// self-contained and its structural properties testable; a permutation
// built from other constants with NewPermutation is not used by them.
package poseidon

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"wormcore/internal/fp"
)

const (
	// minWidth/maxWidth bound the sponge's total state size (domain tag
	// plus message elements), matching the protocol's poseidon2 (nullifier)
	// through poseidon6 (burn address) calls.
	minWidth = 2
	maxWidth = 7

	fullRounds    = 8 // RF, split before/after the partial rounds
	partialRounds = 57
)

// Permutation is a Poseidon permutation instance over a fixed state width.
type Permutation struct {
	width int
	rc    [][]fp.Fp
	mds   [][]fp.Fp
}

// NewPermutation builds a standalone permutation for the given state width
// from an explicit round-constant table and MDS matrix. Its Permute can be
// called directly; Hash does not use it.
//
// rc must have fullRounds+partialRounds rows, each of length width. mds
// must be width x width.
func NewPermutation(width int, rc [][]fp.Fp, mds [][]fp.Fp) (*Permutation, error) {
	if width < minWidth || width > maxWidth {
		return nil, fmt.Errorf("poseidon: unsupported state width %d", width)
	}
	if len(rc) != fullRounds+partialRounds {
		return nil, fmt.Errorf("poseidon: expected %d rounds of constants, got %d", fullRounds+partialRounds, len(rc))
	}
	for i, row := range rc {
		if len(row) != width {
			return nil, fmt.Errorf("poseidon: round %d: expected %d constants, got %d", i, width, len(row))
		}
	}
	if len(mds) != width {
		return nil, fmt.Errorf("poseidon: mds: expected %d rows, got %d", width, len(mds))
	}
	for i, row := range mds {
		if len(row) != width {
			return nil, fmt.Errorf("poseidon: mds row %d: expected %d entries, got %d", i, width, len(row))
		}
	}
	return &Permutation{width: width, rc: rc, mds: mds}, nil
}

// cache of generated default permutations, one per supported width.
var defaults = map[int]*Permutation{}

// DefaultPermutation returns the deterministically generated stand-in
// permutation for the given state width, caching it across calls.
func DefaultPermutation(width int) *Permutation {
	if p, ok := defaults[width]; ok {
		return p
	}
	rc := generateConstants(width)
	mds := generateMDS(width)
	p, err := NewPermutation(width, rc, mds)
	if err != nil {
		// width is validated by callers (width in 2..7); a failure here
		// indicates a bug in generateConstants/generateMDS, not bad input.
		panic(err)
	}
	defaults[width] = p
	return p
}

// generateConstants expands a keccak256 stream into width*(fullRounds+
// partialRounds) field elements. This is a structural stand-in, not the
// circuit's real constants; see the package doc comment.
func generateConstants(width int) [][]fp.Fp {
	rounds := fullRounds + partialRounds
	out := make([][]fp.Fp, rounds)
	seed := []byte(fmt.Sprintf("wormcore/poseidon/rc/width=%d", width))
	stream := crypto.Keccak256(seed)
	for r := 0; r < rounds; r++ {
		row := make([]fp.Fp, width)
		for c := 0; c < width; c++ {
			stream = crypto.Keccak256(stream)
			row[c] = fp.FromBigEndianBytes(stream)
		}
		out[r] = row
	}
	return out
}

// generateMDS builds a Cauchy matrix M[i][j] = 1/(x_i + y_j), the standard
// construction for a maximum-distance-separable Poseidon mixing matrix,
// from two disjoint deterministic sequences.
func generateMDS(width int) [][]fp.Fp {
	xs := make([]fp.Fp, width)
	ys := make([]fp.Fp, width)
	for i := 0; i < width; i++ {
		xs[i] = fp.NewFromUint64(uint64(i + 1))
		ys[i] = fp.NewFromUint64(uint64(width + i + 1))
	}
	mds := make([][]fp.Fp, width)
	for i := 0; i < width; i++ {
		row := make([]fp.Fp, width)
		for j := 0; j < width; j++ {
			sum := xs[i].Add(ys[j])
			row[j] = sum.Inverse()
		}
		mds[i] = row
	}
	return mds
}

// Permute runs the full Poseidon permutation over state in place and
// returns it. len(state) must equal p.width.
func (p *Permutation) Permute(state []fp.Fp) []fp.Fp {
	if len(state) != p.width {
		panic(fmt.Sprintf("poseidon: state width %d does not match permutation width %d", len(state), p.width))
	}
	half := fullRounds / 2
	round := 0
	for r := 0; r < half; r++ {
		p.addRoundConstants(state, round)
		fullSBox(state)
		p.mix(state)
		round++
	}
	for r := 0; r < partialRounds; r++ {
		p.addRoundConstants(state, round)
		state[0] = sbox(state[0])
		p.mix(state)
		round++
	}
	for r := 0; r < half; r++ {
		p.addRoundConstants(state, round)
		fullSBox(state)
		p.mix(state)
		round++
	}
	return state
}

func (p *Permutation) addRoundConstants(state []fp.Fp, round int) {
	rc := p.rc[round]
	for i := range state {
		state[i] = state[i].Add(rc[i])
	}
}

func (p *Permutation) mix(state []fp.Fp) {
	out := make([]fp.Fp, len(state))
	for i := range out {
		acc := fp.Zero()
		row := p.mds[i]
		for j, s := range state {
			acc = acc.Add(row[j].Mul(s))
		}
		out[i] = acc
	}
	copy(state, out)
}

func sbox(f fp.Fp) fp.Fp {
	return f.Exp(5)
}

func fullSBox(state []fp.Fp) {
	for i := range state {
		state[i] = sbox(state[i])
	}
}

// Hash evaluates the sponge construction: state is seeded with tag in the
// first lane followed by inputs, permuted, and the first output lane is
// returned. width is the total state size (tag lane + len(inputs)) and
// must be between 2 and 7, matching the protocol's poseidonN naming where
// N is this same total width (poseidon2 for the nullifier, poseidon3 for
// coin commitments, poseidon6 for burn addresses).
func Hash(width int, tag fp.Fp, inputs ...fp.Fp) fp.Fp {
	if width < minWidth || width > maxWidth {
		panic(fmt.Sprintf("poseidon: unsupported width %d", width))
	}
	if len(inputs) != width-1 {
		panic(fmt.Sprintf("poseidon: width %d requires %d inputs, got %d", width, width-1, len(inputs)))
	}
	state := make([]fp.Fp, width)
	state[0] = tag
	copy(state[1:], inputs)
	out := DefaultPermutation(width).Permute(state)
	return out[0]
}

// Hash2, Hash3, and Hash6 are convenience wrappers matching the
// poseidon2/poseidon3/poseidon6 naming used throughout the commitment
// algebra; the first argument is the domain tag occupying the sponge's
// first lane.
func Hash2(tag, a fp.Fp) fp.Fp                      { return Hash(2, tag, a) }
func Hash3(tag, a, b fp.Fp) fp.Fp                   { return Hash(3, tag, a, b) }
func Hash6(tag, a, b, c, d, e fp.Fp) fp.Fp          { return Hash(6, tag, a, b, c, d, e) }
