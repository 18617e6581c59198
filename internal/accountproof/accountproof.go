// Package accountproof shapes an EIP-1186 account proof and a block header
// into the fixed-width JSON record the external witness generator expects.
package accountproof

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wormcore/internal/wormerr"
)

const (
	maxLayers     = 16
	layerWidth    = 544
	headerWidth   = 1088
	lenSentinel   = 32
)

// AccountProof mirrors the JSON-RPC eth_getProof response shape (the
// go-ethereum client type gethclient.AccountResult is not re-exported in a
// form convenient to construct in tests, so this repo defines its own
// equivalent and converts at the chain-client boundary).
type AccountProof struct {
	Address      common.Address
	AccountProof []string // hex-encoded RLP trie nodes, root to leaf
	Balance      *big.Int
	CodeHash     common.Hash
	Nonce        uint64
	StorageHash  common.Hash
}

// InputParams carries the per-request fields that are not derivable from
// the chain itself.
type InputParams struct {
	BurnKey              string // decimal string
	BroadcasterFeeAmount string
	RevealAmount         string
	ProverFeeAmount      string // 0 unless explicitly overridden
	ByteSecurityRelax    int    // 0 in practice, configurable for testing
	ProverAddress        common.Address
	ReceiverAddress      common.Address // wallet/receiver address, distinct from the burn address the proof was fetched for
}

// CircuitInput is the fixed-schema JSON record handed to the witness
// generator. Field names and presence match §4.5 of the wormcore
// specification exactly; integers that feed field-element circuit inputs
// are encoded as decimal strings, byte arrays as arrays of small ints.
type CircuitInput struct {
	Balance               string   `json:"balance"`
	NumLayers             int      `json:"numLayers"`
	LayerLens             [16]int  `json:"layerLens"`
	Layers                [16][544]int `json:"layers"`
	BlockHeader           [1088]int    `json:"blockHeader"`
	BlockHeaderLen        int      `json:"blockHeaderLen"`
	ReceiverAddress       string   `json:"receiverAddress"`
	NumLeafAddressNibbles string   `json:"numLeafAddressNibbles"`
	BurnKey               string  `json:"burnKey"`
	BroadcasterFeeAmount  string  `json:"broadcasterFeeAmount"`
	RevealAmount          string  `json:"revealAmount"`
	ByteSecurityRelax     int     `json:"byteSecurityRelax"`
	ProverFeeAmount       string  `json:"proverFeeAmount"`
	ExtraCommitment       string  `json:"_extraCommitment"`
}

type rlpLeaf struct {
	Key   []byte
	Value []byte
}

// BuildCircuitInput implements §4.5 exactly: decode the proof's leaf,
// determine the address-nibble count from its key prefix, pad every layer
// and the header to the circuit's fixed widths, and emit the schema above.
func BuildCircuitInput(proof AccountProof, header *types.Header, params InputParams) (CircuitInput, error) {
	if len(proof.AccountProof) == 0 {
		return CircuitInput{}, wormerr.New(wormerr.MalformedProof, "account proof has no trie nodes")
	}
	if len(proof.AccountProof) > maxLayers {
		return CircuitInput{}, wormerr.New(wormerr.MalformedProof, fmt.Sprintf("account proof has %d layers, circuit supports at most %d", len(proof.AccountProof), maxLayers))
	}

	nodes := make([][]byte, len(proof.AccountProof))
	for i, hexNode := range proof.AccountProof {
		raw, err := hexutil.Decode(hexNode)
		if err != nil {
			return CircuitInput{}, wormerr.Wrap(wormerr.MalformedProof, "decoding proof node hex", err)
		}
		if len(raw) > layerWidth {
			return CircuitInput{}, wormerr.New(wormerr.MalformedProof, fmt.Sprintf("proof node %d is %d bytes, exceeds layer width %d", i, len(raw), layerWidth))
		}
		nodes[i] = raw
	}

	var leaf rlpLeaf
	if err := rlp.DecodeBytes(nodes[len(nodes)-1], &leaf); err != nil {
		return CircuitInput{}, wormerr.Wrap(wormerr.MalformedProof, "decoding leaf node", err)
	}
	nibbles, err := leafAddressNibbles(leaf.Key)
	if err != nil {
		return CircuitInput{}, err
	}

	var layers [16][544]int
	var layerLens [16]int
	for i := range layerLens {
		layerLens[i] = lenSentinel
	}
	for i, node := range nodes {
		layerLens[i] = len(node)
		for b, v := range node {
			layers[i][b] = int(v)
		}
	}

	headerBytes, err := rlp.EncodeToBytes(header)
	if err != nil {
		return CircuitInput{}, fmt.Errorf("accountproof: rlp-encoding header: %w", err)
	}
	if len(headerBytes) > headerWidth {
		return CircuitInput{}, wormerr.New(wormerr.MalformedProof, fmt.Sprintf("rlp header is %d bytes, exceeds width %d", len(headerBytes), headerWidth))
	}
	var headerPadded [1088]int
	for i, v := range headerBytes {
		headerPadded[i] = int(v)
	}

	extraCommitment := extraCommitmentFor(params.ProverAddress)

	return CircuitInput{
		Balance:               proof.Balance.String(),
		NumLayers:             len(nodes),
		LayerLens:             layerLens,
		Layers:                layers,
		BlockHeader:           headerPadded,
		BlockHeaderLen:        len(headerBytes),
		ReceiverAddress:       new(big.Int).SetBytes(params.ReceiverAddress[:]).String(),
		NumLeafAddressNibbles: strconv.Itoa(nibbles),
		BurnKey:               params.BurnKey,
		BroadcasterFeeAmount:  params.BroadcasterFeeAmount,
		RevealAmount:          params.RevealAmount,
		ByteSecurityRelax:     params.ByteSecurityRelax,
		ProverFeeAmount:       defaultZero(params.ProverFeeAmount),
		ExtraCommitment:       extraCommitment.String(),
	}, nil
}

func defaultZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// leafAddressNibbles implements the even/odd leaf-key-prefix rule.
func leafAddressNibbles(key []byte) (int, error) {
	if len(key) == 0 {
		return 0, wormerr.New(wormerr.MalformedProof, "empty leaf key")
	}
	switch key[0] & 0xf0 {
	case 0x20:
		return 2*len(key) - 2, nil
	case 0x30:
		return 2*len(key) - 1, nil
	default:
		return 0, wormerr.New(wormerr.MalformedProof, fmt.Sprintf("unrecognized leaf key prefix 0x%02x", key[0]))
	}
}

// extraCommitmentFor computes (keccak256(proverAddress) as U256) >> 8, the
// top byte cleared so the value is guaranteed less than the scalar field
// modulus.
func extraCommitmentFor(prover common.Address) *big.Int {
	digest := crypto.Keccak256(prover.Bytes())
	v := new(big.Int).SetBytes(digest)
	return v.Rsh(v, 8)
}
