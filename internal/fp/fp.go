// Package fp implements arithmetic over the BN254 scalar field, the prime
// field the burn-address, nullifier, and coin-commitment hashes operate
// over.
package fp

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Fp is an element of the BN254 scalar field, order
// 21888242871839275222246405745257275088548364400416034343698204186575808495617.
type Fp struct {
	el fr.Element
}

// Modulus returns the field's prime order.
func Modulus() *big.Int {
	return fr.Modulus()
}

// Zero returns the additive identity.
func Zero() Fp { return Fp{} }

// NewFromUint64 builds an Fp from a small unsigned integer, useful for
// domain-separation tags and test vectors.
func NewFromUint64(v uint64) Fp {
	var f Fp
	f.el.SetUint64(v)
	return f
}

// Random samples a uniformly random field element.
func Random() (Fp, error) {
	var f Fp
	_, err := f.el.SetRandom()
	if err != nil {
		return Fp{}, fmt.Errorf("fp: random: %w", err)
	}
	return f, nil
}

// FromDecimalString parses a base-10 integer literal, reducing modulo p.
func FromDecimalString(s string) (Fp, error) {
	var f Fp
	if _, err := f.el.SetString(s); err != nil {
		return Fp{}, fmt.Errorf("fp: invalid decimal string %q: %w", s, err)
	}
	return f, nil
}

// FromBigEndianBytes reduces an arbitrary-length big-endian byte string
// modulo p. This is the "fe(x)" reduction referenced throughout the
// commitment algebra.
func FromBigEndianBytes(b []byte) Fp {
	var f Fp
	f.el.SetBytes(b)
	return f
}

// FromLittleEndianBytes decodes the canonical 32-byte little-endian
// representation produced by Bytes.
func FromLittleEndianBytes(b [32]byte) Fp {
	be := reverse32(b)
	var f Fp
	f.el.SetBytes(be[:])
	return f
}

// Bytes returns the canonical little-endian 32-byte representation.
func (f Fp) Bytes() [32]byte {
	be := f.el.Bytes() // big-endian, canonical (Montgomery form undone)
	return reverse32(be)
}

// BigEndianBytes returns the canonical big-endian 32-byte representation,
// the form used to derive a burn address (its low 20 bytes).
func (f Fp) BigEndianBytes() [32]byte {
	return f.el.Bytes()
}

func reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

// Add returns f+g mod p.
func (f Fp) Add(g Fp) Fp {
	var out Fp
	out.el.Add(&f.el, &g.el)
	return out
}

// Mul returns f*g mod p.
func (f Fp) Mul(g Fp) Fp {
	var out Fp
	out.el.Mul(&f.el, &g.el)
	return out
}

// Sub returns f-g mod p.
func (f Fp) Sub(g Fp) Fp {
	var out Fp
	out.el.Sub(&f.el, &g.el)
	return out
}

// Square returns f^2 mod p.
func (f Fp) Square() Fp {
	var out Fp
	out.el.Square(&f.el)
	return out
}

// Exp returns f^e mod p.
func (f Fp) Exp(e uint64) Fp {
	var out Fp
	var exp big.Int
	exp.SetUint64(e)
	out.el.Exp(f.el, &exp)
	return out
}

// Inverse returns f^-1 mod p. f must be non-zero.
func (f Fp) Inverse() Fp {
	var out Fp
	out.el.Inverse(&f.el)
	return out
}

// Equal reports whether f and g represent the same field element.
func (f Fp) Equal(g Fp) bool {
	return f.el.Equal(&g.el)
}

// IsZero reports whether f is the additive identity.
func (f Fp) IsZero() bool {
	return f.el.IsZero()
}

// String renders the element as a base-10 integer, matching the decimal-
// string encoding used throughout the wallet store and circuit input.
func (f Fp) String() string {
	return f.el.String()
}

// BigInt returns the element as a *big.Int in [0, p).
func (f Fp) BigInt() *big.Int {
	var out big.Int
	f.el.BigInt(&out)
	return &out
}
