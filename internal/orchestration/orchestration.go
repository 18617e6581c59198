// Package orchestration implements the protocol's four high-level user
// actions — burn, recover, spend, and the server's compute-proof variant —
// composing commitment derivation, account-proof extraction, the proof
// pipeline, and wallet persistence around the external chain and contract
// clients. Grounded on original_source's cli/burn.rs, cli/recover.rs,
// cli/spend.rs, and server/proof_logic.rs for exact step order.
package orchestration

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"wormcore/internal/accountproof"
	"wormcore/internal/burnkey"
	"wormcore/internal/chain"
	"wormcore/internal/commitment"
	"wormcore/internal/fp"
	"wormcore/internal/obslog"
	"wormcore/internal/proofpipeline"
	"wormcore/internal/trieverify"
	"wormcore/internal/wallet"
	"wormcore/internal/wormerr"
)

// Flow bundles every collaborator an orchestration action needs: the
// chain/contract clients (external, supplied by the embedding
// application), the proof pipeline, the wallet store, and a logger for
// the milestone lines spec.md §7 requires.
type Flow struct {
	Chain      chain.Client
	Contract   chain.ContractClient
	Pipeline   *proofpipeline.Pipeline
	Wallet     *wallet.Store
	Log        obslog.Logger
	Difficulty int // PoW difficulty for burn-key search; 0 disables PoW
}

// BurnParams are the user-supplied inputs to a burn.
type BurnParams struct {
	Network        string
	Amount         *big.Int
	ProverFee      *big.Int
	BroadcasterFee *big.Int
	Spend          *big.Int
	Reveal         *big.Int
	Receiver       commitment.Address
	Prover         commitment.Address
}

// BurnResult is what a successful burn hands back to the caller.
type BurnResult struct {
	BurnKey       fp.Fp
	BurnAddress   commitment.Address
	TxHash        [32]byte
	BlockNumber   *big.Int
	Proof         chain.GrothProof
	Nullifier     fp.Fp
	RemainingCoin fp.Fp
	MintTxHash    [32]byte
}

// Burn implements spec.md §4.12's burn flow: validate amounts, search for
// a burn-key, derive commitments, send the burn transaction, persist
// wallet records, run the proof pipeline, and mint.
func (f *Flow) Burn(ctx context.Context, p BurnParams) (BurnResult, error) {
	if err := commitment.ValidateAmounts(p.Amount, p.BroadcasterFee, p.Spend); err != nil {
		return BurnResult{}, err
	}

	burnKey, err := burnkey.Find(ctx, f.Difficulty, burnkey.AuxParams{
		Receiver:       p.Receiver,
		ProverFee:      p.ProverFee,
		BroadcasterFee: p.BroadcasterFee,
		Reveal:         p.Reveal,
	})
	if err != nil {
		return BurnResult{}, fmt.Errorf("orchestration: burn-key search: %w", err)
	}
	f.Log.Milestone("burn_key_found", map[string]any{"network": p.Network})

	derived, err := commitment.Derive(burnKey, p.Receiver, p.Amount, p.ProverFee, p.BroadcasterFee, p.Spend, p.Reveal)
	if err != nil {
		return BurnResult{}, err
	}

	pending, err := f.Chain.SendTransaction(ctx, derived.BurnAddress, p.Amount)
	if err != nil {
		return BurnResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "sending burn transaction", err)
	}
	txHash := pending.Hash()
	f.Log.Milestone("burn_tx_sent", map[string]any{"tx_hash": fmt.Sprintf("%x", txHash[:])})

	receipt, err := pending.Receipt(ctx)
	if err != nil {
		return BurnResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "awaiting burn receipt", err)
	}
	if receipt.Status == 0 {
		return BurnResult{}, wormerr.New(wormerr.BurnTxFailed, "burn transaction reverted")
	}

	burnID, err := f.Wallet.NextBurnID()
	if err != nil {
		return BurnResult{}, err
	}
	if err := f.Wallet.AppendBurn(wallet.BurnRecord{
		ID:      burnID,
		BurnKey: burnKey.String(),
		Fee:     p.BroadcasterFee.String(),
		Spend:   p.Spend.String(),
		Network: p.Network,
	}); err != nil {
		return BurnResult{}, err
	}
	remaining := new(big.Int).Sub(p.Amount, new(big.Int).Add(p.BroadcasterFee, p.Spend))
	coinID, err := f.Wallet.NextCoinID()
	if err != nil {
		return BurnResult{}, err
	}
	if err := f.Wallet.AppendCoin(wallet.CoinRecord{
		ID:      coinID,
		BurnKey: burnKey.String(),
		Amount:  remaining.String(),
		Network: p.Network,
	}); err != nil {
		return BurnResult{}, err
	}

	proof, blockNumber, err := f.proveBurn(ctx, burnKey, derived.BurnAddress, p)
	if err != nil {
		return BurnResult{}, err
	}
	f.Log.Milestone("proof_generated", map[string]any{"block_number": blockNumber.String()})

	mintTx, err := f.Contract.MintCoin(ctx, mintArgsFor(proof, blockNumber, derived, p))
	if err != nil {
		return BurnResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "broadcasting mint", err)
	}
	f.Log.Milestone("mint_success", map[string]any{"tx_hash": fmt.Sprintf("%x", hashBytes(mintTx.Hash()))})

	return BurnResult{
		BurnKey:       burnKey,
		BurnAddress:   derived.BurnAddress,
		TxHash:        txHash,
		BlockNumber:   blockNumber,
		Proof:         proof,
		Nullifier:     derived.Nullifier,
		RemainingCoin: derived.RemainingCoin,
		MintTxHash:    mintTx.Hash(),
	}, nil
}

// RecoverByID reads burnKey/fee/spend from an existing wallet record and
// replays the burn flow's proof+mint steps for a burn-address whose
// transaction was already observed on-chain.
func (f *Flow) RecoverByID(ctx context.Context, id string, p BurnParams) (BurnResult, error) {
	records, err := f.Wallet.ListBurns()
	if err != nil {
		return BurnResult{}, err
	}
	for _, rec := range records {
		if rec.ID != id {
			continue
		}
		burnKey, err := fp.FromDecimalString(rec.BurnKey)
		if err != nil {
			return BurnResult{}, wormerr.Wrap(wormerr.InvalidBurnKey, rec.BurnKey, err)
		}
		fee, ok := new(big.Int).SetString(rec.Fee, 10)
		if !ok {
			return BurnResult{}, wormerr.New(wormerr.StoreCorrupt, "burn record fee is not an integer")
		}
		spend, ok := new(big.Int).SetString(rec.Spend, 10)
		if !ok {
			return BurnResult{}, wormerr.New(wormerr.StoreCorrupt, "burn record spend is not an integer")
		}
		p.BroadcasterFee = fee
		p.Spend = spend
		return f.recoverManual(ctx, burnKey, p)
	}
	return BurnResult{}, wormerr.New(wormerr.NotFound, fmt.Sprintf("no burn record with id %q", id))
}

// RecoverManual replays the burn flow's proof+mint steps for a burn-key
// and parameters supplied entirely by the caller (e.g. recovering on a
// machine with no local wallet record).
func (f *Flow) RecoverManual(ctx context.Context, burnKey fp.Fp, p BurnParams) (BurnResult, error) {
	return f.recoverManual(ctx, burnKey, p)
}

func (f *Flow) recoverManual(ctx context.Context, burnKey fp.Fp, p BurnParams) (BurnResult, error) {
	derived, err := commitment.Derive(burnKey, p.Receiver, p.Amount, p.ProverFee, p.BroadcasterFee, p.Spend, p.Reveal)
	if err != nil {
		return BurnResult{}, err
	}

	balance, err := f.Chain.GetBalance(ctx, derived.BurnAddress)
	if err != nil {
		return BurnResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "reading burn-address balance", err)
	}
	p.Amount = balance

	proof, blockNumber, err := f.proveBurn(ctx, burnKey, derived.BurnAddress, p)
	if err != nil {
		return BurnResult{}, err
	}
	f.Log.Milestone("proof_generated", map[string]any{"block_number": blockNumber.String()})

	mintTx, err := f.Contract.MintCoin(ctx, mintArgsFor(proof, blockNumber, derived, p))
	if err != nil {
		return BurnResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "broadcasting mint", err)
	}
	f.Log.Milestone("mint_success", map[string]any{"tx_hash": fmt.Sprintf("%x", hashBytes(mintTx.Hash()))})

	return BurnResult{
		BurnKey:       burnKey,
		BurnAddress:   derived.BurnAddress,
		BlockNumber:   blockNumber,
		Proof:         proof,
		Nullifier:     derived.Nullifier,
		RemainingCoin: derived.RemainingCoin,
		MintTxHash:    mintTx.Hash(),
	}, nil
}

// proveBurn fetches the latest block and its own account proof for
// burnAddr, shapes the circuit input, and runs the burn proof pipeline.
func (f *Flow) proveBurn(ctx context.Context, burnKey fp.Fp, burnAddr commitment.Address, p BurnParams) (chain.GrothProof, *big.Int, error) {
	header, err := f.Chain.GetBlock(ctx, nil)
	if err != nil {
		return chain.GrothProof{}, nil, wormerr.Wrap(wormerr.ChainRPCFailed, "fetching latest block", err)
	}
	proof, err := f.Chain.GetProof(ctx, burnAddr)
	if err != nil {
		return chain.GrothProof{}, nil, wormerr.Wrap(wormerr.ChainRPCFailed, "fetching account proof", err)
	}
	input, err := accountproof.BuildCircuitInput(proof, header, accountproof.InputParams{
		BurnKey:              burnKey.String(),
		BroadcasterFeeAmount: p.BroadcasterFee.String(),
		RevealAmount:         p.Reveal.String(),
		ProverFeeAmount:      p.ProverFee.String(),
		ProverAddress:        common.Address(p.Prover),
		ReceiverAddress:      common.Address(p.Receiver),
	})
	if err != nil {
		return chain.GrothProof{}, nil, err
	}
	grothProof, err := f.Pipeline.RunBurn(ctx, input)
	if err != nil {
		return chain.GrothProof{}, nil, err
	}
	return grothProof, header.Number, nil
}

// hashBytes slices a [32]byte tx hash for %x formatting, which (unlike
// fmt's default array layout) hex-encodes a byte slice contiguously.
func hashBytes(h [32]byte) []byte { return h[:] }

func mintArgsFor(proof chain.GrothProof, blockNumber *big.Int, derived commitment.Derived, p BurnParams) chain.MintArgs {
	return chain.MintArgs{
		Proof:          proof,
		BlockNumber:    blockNumber,
		Nullifier:      derived.Nullifier.BigInt(),
		RemainingCoin:  derived.RemainingCoin.BigInt(),
		BroadcasterFee: p.BroadcasterFee,
		Reveal:         p.Reveal,
		Recipient:      p.Receiver,
		ProverFee:      p.ProverFee,
		Prover:         p.Prover,
		ReceiverHook:   p.Receiver,
		Extra:          big.NewInt(0),
	}
}

// SpendParams are the user-supplied inputs to a spend.
type SpendParams struct {
	CoinID   string
	Network  string
	Spend    *big.Int
	Fee      *big.Int
	Receiver commitment.Address
}

// SpendResult is what a successful spend hands back to the caller.
type SpendResult struct {
	Proof         chain.GrothProof
	PreviousCoin  fp.Fp
	RemainingCoin fp.Fp
	TxHash        [32]byte
}

// Spend implements spec.md §4.12's spend flow: load the coin by id,
// validate spend+fee<=amount, derive previous/remaining coin commitments,
// run the spend proof pipeline, broadcast, and append the change coin.
func (f *Flow) Spend(ctx context.Context, p SpendParams) (SpendResult, error) {
	coins, err := f.Wallet.ListCoins()
	if err != nil {
		return SpendResult{}, err
	}
	var coin *wallet.CoinRecord
	for i := range coins {
		if coins[i].ID == p.CoinID {
			coin = &coins[i]
			break
		}
	}
	if coin == nil {
		return SpendResult{}, wormerr.New(wormerr.NotFound, fmt.Sprintf("no coin record with id %q", p.CoinID))
	}

	burnKey, err := fp.FromDecimalString(coin.BurnKey)
	if err != nil {
		return SpendResult{}, wormerr.Wrap(wormerr.InvalidBurnKey, coin.BurnKey, err)
	}
	amount, ok := new(big.Int).SetString(coin.Amount, 10)
	if !ok {
		return SpendResult{}, wormerr.New(wormerr.StoreCorrupt, "coin record amount is not an integer")
	}

	if err := commitment.ValidateAmounts(amount, p.Fee, p.Spend); err != nil {
		return SpendResult{}, err
	}
	remaining := new(big.Int).Sub(amount, new(big.Int).Add(p.Fee, p.Spend))

	previousCoin := commitment.Coin(burnKey, amount)
	remainingCoin := commitment.Coin(burnKey, remaining)

	grothProof, err := f.Pipeline.RunSpend(ctx, proofpipeline.SpendInput{
		BurnKey:          burnKey.String(),
		Balance:          amount.String(),
		WithdrawnBalance: p.Spend.String(),
		ReceiverAddress:  fmt.Sprintf("0x%x", p.Receiver),
		Fee:              p.Fee.String(),
	})
	if err != nil {
		return SpendResult{}, err
	}
	f.Log.Milestone("proof_generated", map[string]any{"coin_id": p.CoinID})

	tx, err := f.Contract.SpendCoin(ctx, chain.SpendArgs{
		Proof:         grothProof,
		PreviousCoin:  previousCoin.BigInt(),
		OutAmount:     p.Spend,
		RemainingCoin: remainingCoin.BigInt(),
		Fee:           p.Fee,
		Receiver:      p.Receiver,
	})
	if err != nil {
		return SpendResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "broadcasting spend", err)
	}
	f.Log.Milestone("spend_broadcast", map[string]any{"tx_hash": fmt.Sprintf("%x", hashBytes(tx.Hash()))})

	coinID, err := f.Wallet.NextCoinID()
	if err != nil {
		return SpendResult{}, err
	}
	if err := f.Wallet.AppendCoin(wallet.CoinRecord{
		ID:      coinID,
		BurnKey: burnKey.String(),
		Amount:  remaining.String(),
		Network: p.Network,
	}); err != nil {
		return SpendResult{}, err
	}

	return SpendResult{
		Proof:         grothProof,
		PreviousCoin:  previousCoin,
		RemainingCoin: remainingCoin,
		TxHash:        tx.Hash(),
	}, nil
}

// ComputeProofParams is the server-side variant of BurnParams: the burn
// flow minus wallet persistence and the on-chain broadcast, accepting
// either a caller-supplied account proof (verified via internal/trieverify)
// or fetching one itself.
type ComputeProofParams struct {
	BurnKey        fp.Fp
	Network        string
	Amount         *big.Int
	ProverFee      *big.Int
	BroadcasterFee *big.Int
	Spend          *big.Int
	Reveal         *big.Int
	Receiver       commitment.Address
	Prover         commitment.Address

	// SuppliedProof and BlockNumber are both set, or both nil; mixing one
	// without the other is rejected by ComputeProof.
	SuppliedProof *accountproof.AccountProof
	BlockNumber   *big.Int
}

// ComputeProofResult mirrors spec.md §6's ProofOutput.
type ComputeProofResult struct {
	BurnAddress    commitment.Address
	Proof          chain.GrothProof
	BlockNumber    *big.Int
	Nullifier      fp.Fp
	RemainingCoin  fp.Fp
	BroadcasterFee *big.Int
	ProverFee      *big.Int
	Prover         commitment.Address
	RevealAmount   *big.Int
}

// ComputeProof implements the server flow of spec.md §4.12: derive
// commitments, obtain an account proof (verifying a caller-supplied one
// against the block's state root, or fetching its own), and run the
// proof pipeline. No wallet writes, no on-chain broadcast.
func (f *Flow) ComputeProof(ctx context.Context, p ComputeProofParams) (ComputeProofResult, error) {
	if (p.SuppliedProof == nil) != (p.BlockNumber == nil) {
		return ComputeProofResult{}, wormerr.New(wormerr.BadRequest, "proof and block_number must both be supplied or both omitted")
	}

	derived, err := commitment.Derive(p.BurnKey, p.Receiver, p.Amount, p.ProverFee, p.BroadcasterFee, p.Spend, p.Reveal)
	if err != nil {
		return ComputeProofResult{}, err
	}

	if p.SuppliedProof != nil {
		blockHeader, err := f.Chain.GetBlock(ctx, p.BlockNumber)
		if err != nil {
			return ComputeProofResult{}, wormerr.Wrap(wormerr.ChainRPCFailed, "fetching block for verification", err)
		}
		if err := trieverify.Verify(*p.SuppliedProof, blockHeader.Root); err != nil {
			return ComputeProofResult{}, err
		}
		input, err := accountproof.BuildCircuitInput(*p.SuppliedProof, blockHeader, accountproof.InputParams{
			BurnKey:              p.BurnKey.String(),
			BroadcasterFeeAmount: p.BroadcasterFee.String(),
			RevealAmount:         p.Reveal.String(),
			ProverFeeAmount:      p.ProverFee.String(),
			ProverAddress:        common.Address(p.Prover),
			ReceiverAddress:      common.Address(p.Receiver),
		})
		if err != nil {
			return ComputeProofResult{}, err
		}
		grothProof, err := f.Pipeline.RunBurn(ctx, input)
		if err != nil {
			return ComputeProofResult{}, err
		}
		return f.computeResult(derived, grothProof, p.BlockNumber, p), nil
	}

	grothProof, blockNumber, err := f.proveBurn(ctx, p.BurnKey, derived.BurnAddress, BurnParams{
		Network:        p.Network,
		Amount:         p.Amount,
		ProverFee:      p.ProverFee,
		BroadcasterFee: p.BroadcasterFee,
		Spend:          p.Spend,
		Reveal:         p.Reveal,
		Receiver:       p.Receiver,
		Prover:         p.Prover,
	})
	if err != nil {
		return ComputeProofResult{}, err
	}
	return f.computeResult(derived, grothProof, blockNumber, p), nil
}

func (f *Flow) computeResult(derived commitment.Derived, proof chain.GrothProof, blockNumber *big.Int, p ComputeProofParams) ComputeProofResult {
	return ComputeProofResult{
		BurnAddress:    derived.BurnAddress,
		Proof:          proof,
		BlockNumber:    blockNumber,
		Nullifier:      derived.Nullifier,
		RemainingCoin:  derived.RemainingCoin,
		BroadcasterFee: p.BroadcasterFee,
		ProverFee:      p.ProverFee,
		Prover:         p.Prover,
		RevealAmount:   p.Reveal,
	}
}
