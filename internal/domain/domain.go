// Package domain derives the fixed Poseidon domain-separation tags shared
// by every commitment computed in internal/commitment.
package domain

import "wormcore/internal/fp"

// poseidonPrefixDecimal is keccak256("EIP-7503") reduced mod p, computed
// off-line once and pinned here as the protocol's base tag.
const poseidonPrefixDecimal = "5265656504298861414514317065875120428884240036965045859626767452974705356670"

var poseidonPrefix = mustParse(poseidonPrefixDecimal)

func mustParse(s string) fp.Fp {
	v, err := fp.FromDecimalString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// PoseidonPrefix returns the protocol's base domain-separation constant.
func PoseidonPrefix() fp.Fp { return poseidonPrefix }

// BurnAddrPrefix tags the burn-address derivation hash (PREFIX + 0).
func BurnAddrPrefix() fp.Fp { return poseidonPrefix.Add(fp.NewFromUint64(0)) }

// NullifierPrefix tags the nullifier hash (PREFIX + 1).
func NullifierPrefix() fp.Fp { return poseidonPrefix.Add(fp.NewFromUint64(1)) }

// CoinPrefix tags coin-commitment hashes (PREFIX + 2).
func CoinPrefix() fp.Fp { return poseidonPrefix.Add(fp.NewFromUint64(2)) }
