// Package chain declares the external collaborators wormcore depends on
// but does not implement: the host-chain RPC client and the protocol's
// smart-contract bindings. It also owns the network registry.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"wormcore/internal/accountproof"
	"wormcore/internal/commitment"
)

// Receipt is the minimal transaction-receipt shape orchestration flows
// inspect to decide whether a burn transaction succeeded.
type Receipt struct {
	Status uint64
}

// PendingTx represents a transaction that has been submitted but not yet
// mined.
type PendingTx interface {
	Hash() [32]byte
	Receipt(ctx context.Context) (Receipt, error)
}

// Client is the abstract chain-RPC provider every orchestration flow is
// built against. The internal packages never implement it — it is
// supplied by the embedding application (an ethclient wrapper, a mock for
// tests, or similar); cmd/wormproofd supplies its own read-only ethclient
// wrapper.
type Client interface {
	GetBalance(ctx context.Context, addr commitment.Address) (*big.Int, error)
	GetTransactionCount(ctx context.Context, addr commitment.Address) (uint64, error)
	GetChainID(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, number *big.Int) (*types.Header, error) // nil number means "latest"
	GetProof(ctx context.Context, addr commitment.Address) (accountproof.AccountProof, error)
	SendTransaction(ctx context.Context, to commitment.Address, value *big.Int) (PendingTx, error)
}

// GrothProof is the canonical Groth16 proof record handed to the contract
// client, with pi_b already coordinate-swapped per
// commitment.SwapPiB.
type GrothProof struct {
	PiA      [3]string
	PiBSwap  [3]commitment.GrothG2Coord
	PiC      [3]string
	Public   []string
}

// MintArgs bundles mintCoin's arguments.
type MintArgs struct {
	Proof          GrothProof
	BlockNumber    *big.Int
	Nullifier      *big.Int
	RemainingCoin  *big.Int
	BroadcasterFee *big.Int
	Reveal         *big.Int
	Recipient      commitment.Address
	ProverFee      *big.Int
	Prover         commitment.Address
	ReceiverHook   commitment.Address
	Extra          *big.Int
}

// SpendArgs bundles spendCoin's arguments.
type SpendArgs struct {
	Proof         GrothProof
	PreviousCoin  *big.Int
	OutAmount     *big.Int
	RemainingCoin *big.Int
	Fee           *big.Int
	Receiver      commitment.Address
}

// ContractClient is the protocol's on-chain write surface. Participation/
// claim/info methods are out of core scope per the specification but are
// kept here as thin, unimplemented-by-this-repo interface methods so a
// caller wiring a real binding has a single contract to satisfy.
type ContractClient interface {
	MintCoin(ctx context.Context, args MintArgs) (PendingTx, error)
	SpendCoin(ctx context.Context, args SpendArgs) (PendingTx, error)
	Participate(ctx context.Context, params map[string]any) (PendingTx, error)
	Claim(ctx context.Context, params map[string]any) (PendingTx, error)
	Info(ctx context.Context) (map[string]any, error)
}
