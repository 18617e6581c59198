// Package burnkey implements the proof-of-work search used to throttle
// burn-key generation: candidates are accepted only once their keccak256
// digest (combined with public auxiliary bytes) has enough leading zero
// bits.
package burnkey

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"wormcore/internal/commitment"
	"wormcore/internal/fp"
)

// AuxParams are the public parameters appended to every PoW candidate, in
// the layout `receiver || prover_fee || broadcaster_fee || reveal ||
// "EIP-7503"` — the newest scheme per the protocol's design notes.
type AuxParams struct {
	Receiver       commitment.Address
	ProverFee      *big.Int
	BroadcasterFee *big.Int
	Reveal         *big.Int
}

const tagLiteral = "EIP-7503"

func (a AuxParams) bytes() []byte {
	out := make([]byte, 0, 20+32+32+32+len(tagLiteral))
	out = append(out, a.Receiver[:]...)
	out = append(out, pad32(a.ProverFee)...)
	out = append(out, pad32(a.BroadcasterFee)...)
	out = append(out, pad32(a.Reveal)...)
	out = append(out, []byte(tagLiteral)...)
	return out
}

func pad32(v *big.Int) []byte {
	var out [32]byte
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out[:]
}

// Find iterates candidate secret keys, starting from a random 32-byte
// seed, until keccak256(candidate_be || aux) has at least 8*difficulty
// leading zero bits. It returns the accepted candidate reduced into Fp.
//
// Find honors ctx cancellation, checked once per candidate; there is no
// internal timeout, matching the protocol's "no timeout inside this
// function" design note — callers own cancellation via ctx.
func Find(ctx context.Context, difficulty int, aux AuxParams) (fp.Fp, error) {
	seedBytes := make([]byte, 32)
	if _, err := rand.Read(seedBytes); err != nil {
		return fp.Fp{}, fmt.Errorf("burnkey: seeding candidate search: %w", err)
	}
	seed := new(big.Int).SetBytes(seedBytes)
	auxBytes := aux.bytes()
	requiredZeroBits := 8 * difficulty

	candidate := new(big.Int).Set(seed)
	one := big.NewInt(1)
	for {
		select {
		case <-ctx.Done():
			return fp.Fp{}, ctx.Err()
		default:
		}

		candidateBE := pad32(candidate)
		digest := crypto.Keccak256(append(append([]byte{}, candidateBE...), auxBytes...))
		if leadingZeroBits(digest) >= requiredZeroBits {
			return fp.FromBigEndianBytes(candidateBE), nil
		}
		candidate.Add(candidate, one)
	}
}

// leadingZeroBits counts the number of leading zero bits in b.
func leadingZeroBits(b []byte) int {
	count := 0
	for _, byteVal := range b {
		if byteVal == 0 {
			count += 8
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if byteVal&(1<<uint(bit)) != 0 {
				return count
			}
			count++
		}
	}
	return count
}
