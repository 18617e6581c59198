// Package trieverify independently verifies an EIP-1186 account proof
// against a trusted state root, without consulting the chain client again.
package trieverify

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"wormcore/internal/accountproof"
	"wormcore/internal/wormerr"
)

// account is the RLP shape of a Merkle-Patricia leaf value for an
// externally-owned or contract account.
type account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash
	CodeHash []byte
}

// Verify resolves keccak256(proof.Address) in the trie described by
// proof's nodes, rooted at stateRoot, and checks the resolved account
// against the claimed balance/nonce/storage-root/code-hash.
//
// Lookup, decoding and field-comparison failures are
// wormerr.ProofVerificationFailed naming the specific field or step that
// disagreed; a proof node that is not valid hex is wormerr.MalformedProof.
func Verify(proof accountproof.AccountProof, stateRoot common.Hash) error {
	db := memorydb.New()
	for i, hexNode := range proof.AccountProof {
		raw, err := hexutil.Decode(hexNode)
		if err != nil {
			return wormerr.Wrap(wormerr.MalformedProof, fmt.Sprintf("decoding proof node %d", i), err)
		}
		key := crypto.Keccak256(raw)
		if err := db.Put(key, raw); err != nil {
			return fmt.Errorf("trieverify: staging proof node %d: %w", i, err)
		}
	}

	key := crypto.Keccak256(proof.Address.Bytes())
	value, err := trie.VerifyProof(stateRoot, key, db)
	if err != nil {
		return wormerr.Wrap(wormerr.ProofVerificationFailed, "missing key", err)
	}
	if value == nil {
		return wormerr.New(wormerr.ProofVerificationFailed, "missing key: proof does not resolve to a value")
	}

	var acc account
	if err := rlp.DecodeBytes(value, &acc); err != nil {
		return wormerr.Wrap(wormerr.ProofVerificationFailed, "decoding", err)
	}

	if acc.Nonce != proof.Nonce {
		return wormerr.New(wormerr.ProofVerificationFailed, fmt.Sprintf("nonce: trie has %d, claimed %d", acc.Nonce, proof.Nonce))
	}
	if proof.Balance == nil || acc.Balance.Cmp(proof.Balance) != 0 {
		return wormerr.New(wormerr.ProofVerificationFailed, "balance: trie value does not match claimed balance")
	}
	if !bytes.Equal(acc.CodeHash, proof.CodeHash.Bytes()) {
		return wormerr.New(wormerr.ProofVerificationFailed, "code hash: trie value does not match claimed code hash")
	}
	if acc.Root != proof.StorageHash {
		return wormerr.New(wormerr.ProofVerificationFailed, "storage root: trie value does not match claimed storage hash")
	}
	return nil
}
