// Package commitment implements the burn-address, nullifier, and
// coin-commitment algebra: the algebraic core tying a hidden burn-key to a
// spendable, privacy-preserving balance.
package commitment

import (
	"math/big"

	"wormcore/internal/domain"
	"wormcore/internal/fp"
	"wormcore/internal/poseidon"
	"wormcore/internal/wormerr"
)

// tenEth is the protocol's maximum burn amount, 10 * 10^18 wei.
var tenEth = new(big.Int).Mul(big.NewInt(10), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Address is a 20-byte host-chain account identifier.
type Address [20]byte

// Derived bundles every value computed from a burn-key during a burn or
// spend flow.
type Derived struct {
	BurnAddress    Address
	Nullifier      fp.Fp
	PreviousCoin   fp.Fp
	RemainingCoin  fp.Fp
}

// BurnAddress computes the low 20 bytes of the big-endian representation
// of poseidon6(burn_addr_prefix, burn_key, fe(receiver), fe(prover_fee),
// fe(broadcaster_fee), fe(reveal)).
func BurnAddress(burnKey fp.Fp, receiver Address, proverFee, broadcasterFee, reveal *big.Int) Address {
	h := hash6BurnAddr(burnKey, receiver, proverFee, broadcasterFee, reveal)
	be := h.BigEndianBytes()
	var out Address
	copy(out[:], be[12:])
	return out
}

func hash6BurnAddr(burnKey fp.Fp, receiver Address, proverFee, broadcasterFee, reveal *big.Int) fp.Fp {
	tag := domain.BurnAddrPrefix()
	recv := fp.FromBigEndianBytes(receiver[:])
	pf := fp.FromBigEndianBytes(proverFee.Bytes())
	bf := fp.FromBigEndianBytes(broadcasterFee.Bytes())
	rv := fp.FromBigEndianBytes(reveal.Bytes())
	return poseidon.Hash6(tag, burnKey, recv, pf, bf, rv)
}

// Nullifier computes poseidon2(nullifier_prefix, burn_key), the one-time
// marker the mint contract records to prevent replay of the same burn-key.
func Nullifier(burnKey fp.Fp) fp.Fp {
	return poseidon.Hash2(domain.NullifierPrefix(), burnKey)
}

// Coin computes poseidon3(coin_prefix, burn_key, fe(amount)), the
// commitment to an unspent balance of amount controlled by burnKey.
func Coin(burnKey fp.Fp, amount *big.Int) fp.Fp {
	return poseidon.Hash3(domain.CoinPrefix(), burnKey, fp.FromBigEndianBytes(amount.Bytes()))
}

// Derive validates amount/fee/spend and returns every commitment needed
// for a burn or spend flow.
//
// Validation fails with wormerr.InvalidAmounts if
// broadcasterFee+spend > amount, or amount > 10 ETH.
func Derive(burnKey fp.Fp, receiver Address, amount, proverFee, broadcasterFee, spend, reveal *big.Int) (Derived, error) {
	if err := ValidateAmounts(amount, broadcasterFee, spend); err != nil {
		return Derived{}, err
	}
	remaining := new(big.Int).Sub(amount, new(big.Int).Add(broadcasterFee, spend))
	return Derived{
		BurnAddress:   BurnAddress(burnKey, receiver, proverFee, broadcasterFee, reveal),
		Nullifier:     Nullifier(burnKey),
		PreviousCoin:  Coin(burnKey, amount),
		RemainingCoin: Coin(burnKey, remaining),
	}, nil
}

// ValidateAmounts enforces broadcasterFee+spend <= amount and
// amount <= 10 ETH, per the protocol bound.
func ValidateAmounts(amount, broadcasterFee, spend *big.Int) error {
	sum := new(big.Int).Add(broadcasterFee, spend)
	if sum.Cmp(amount) > 0 {
		return wormerr.New(wormerr.InvalidAmounts, "broadcaster_fee + spend exceeds amount")
	}
	if amount.Cmp(tenEth) > 0 {
		return wormerr.New(wormerr.InvalidAmounts, "amount exceeds the 10 ETH protocol bound")
	}
	return nil
}

// GrothG2Coord is one Fp2 coordinate of a BN254 G2 point: a real/imaginary
// pair of decimal-string field elements, the shape of each entry inside a
// Groth16 proof's pi_b.
type GrothG2Coord [2]string

// SwapPiB returns pi_b with each Fp2 coordinate's two components swapped,
// the BN254 G2 serialization convention the on-chain verifier expects. See
// DESIGN.md's "Open Question decisions" for why this is applied
// unconditionally in one place.
func SwapPiB(piB [3]GrothG2Coord) [3]GrothG2Coord {
	out := piB
	for i := range out {
		out[i][0], out[i][1] = out[i][1], out[i][0]
	}
	return out
}
