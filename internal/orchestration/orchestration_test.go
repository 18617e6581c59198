package orchestration

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wormcore/internal/accountproof"
	"wormcore/internal/chain"
	"wormcore/internal/commitment"
	"wormcore/internal/fp"
	"wormcore/internal/obslog"
	"wormcore/internal/proofpipeline"
	"wormcore/internal/wallet"
	"wormcore/internal/wormerr"
)

// fakeChain is a minimal chain.Client double; each method returns the
// corresponding field (its zero value when unset), so a test only wires
// what it exercises.
type fakeChain struct {
	balance  *big.Int
	block    *types.Header
	proof    accountproof.AccountProof
	proofErr error
	sendErr  error
	sentTx   fakePendingTx
}

func (c *fakeChain) GetBalance(ctx context.Context, addr commitment.Address) (*big.Int, error) {
	return c.balance, nil
}
func (c *fakeChain) GetTransactionCount(ctx context.Context, addr commitment.Address) (uint64, error) {
	return 0, nil
}
func (c *fakeChain) GetChainID(ctx context.Context) (uint64, error) { return 31337, nil }
func (c *fakeChain) GetBlock(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.block, nil
}
func (c *fakeChain) GetProof(ctx context.Context, addr commitment.Address) (accountproof.AccountProof, error) {
	return c.proof, c.proofErr
}
func (c *fakeChain) SendTransaction(ctx context.Context, to commitment.Address, value *big.Int) (chain.PendingTx, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	return c.sentTx, nil
}

type fakePendingTx struct {
	hash       [32]byte
	status     uint64
	receiptErr error
}

func (p fakePendingTx) Hash() [32]byte { return p.hash }
func (p fakePendingTx) Receipt(ctx context.Context) (chain.Receipt, error) {
	if p.receiptErr != nil {
		return chain.Receipt{}, p.receiptErr
	}
	return chain.Receipt{Status: p.status}, nil
}

// fakeContract is a minimal chain.ContractClient double.
type fakeContract struct {
	mintTx    fakePendingTx
	mintErr   error
	spendTx   fakePendingTx
	spendErr  error
	mintArgs  chain.MintArgs
	spendArgs chain.SpendArgs
}

func (c *fakeContract) MintCoin(ctx context.Context, args chain.MintArgs) (chain.PendingTx, error) {
	c.mintArgs = args
	if c.mintErr != nil {
		return nil, c.mintErr
	}
	return c.mintTx, nil
}
func (c *fakeContract) SpendCoin(ctx context.Context, args chain.SpendArgs) (chain.PendingTx, error) {
	c.spendArgs = args
	if c.spendErr != nil {
		return nil, c.spendErr
	}
	return c.spendTx, nil
}
func (c *fakeContract) Participate(ctx context.Context, params map[string]any) (chain.PendingTx, error) {
	return nil, nil
}
func (c *fakeContract) Claim(ctx context.Context, params map[string]any) (chain.PendingTx, error) {
	return nil, nil
}
func (c *fakeContract) Info(ctx context.Context) (map[string]any, error) { return nil, nil }

func testFlow(t *testing.T, chainClient chain.Client, contract chain.ContractClient) *Flow {
	t.Helper()
	dir := t.TempDir()
	store := wallet.New(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("wallet Init: %v", err)
	}
	return &Flow{
		Chain:    chainClient,
		Contract: contract,
		Pipeline: proofpipeline.New(t.TempDir(), t.TempDir()),
		Wallet:   store,
		Log:      obslog.New(io.Discard),
	}
}

func burnParams() BurnParams {
	return BurnParams{
		Network:        "anvil",
		Amount:         big.NewInt(1000),
		ProverFee:      big.NewInt(0),
		BroadcasterFee: big.NewInt(100),
		Spend:          big.NewInt(200),
		Reveal:         big.NewInt(0),
		Receiver:       commitment.Address{0x01},
		Prover:         commitment.Address{0x02},
	}
}

func TestBurnRejectsInvalidAmounts(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	p := burnParams()
	p.BroadcasterFee = big.NewInt(2000) // exceeds amount
	_, err := f.Burn(context.Background(), p)
	if wormerr.KindOf(err) != wormerr.InvalidAmounts {
		t.Fatalf("expected InvalidAmounts, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestBurnPropagatesSendTransactionFailure(t *testing.T) {
	fc := &fakeChain{sendErr: wormerr.New(wormerr.ChainRPCFailed, "rpc down")}
	f := testFlow(t, fc, &fakeContract{})
	_, err := f.Burn(context.Background(), burnParams())
	if wormerr.KindOf(err) != wormerr.ChainRPCFailed {
		t.Fatalf("expected ChainRPCFailed, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestBurnFailsOnRevertedReceipt(t *testing.T) {
	fc := &fakeChain{sentTx: fakePendingTx{hash: [32]byte{0xaa}, status: 0}}
	f := testFlow(t, fc, &fakeContract{})
	_, err := f.Burn(context.Background(), burnParams())
	if wormerr.KindOf(err) != wormerr.BurnTxFailed {
		t.Fatalf("expected BurnTxFailed, got %v (%v)", wormerr.KindOf(err), err)
	}
	records, err := f.Wallet.ListBurns()
	if err != nil {
		t.Fatalf("ListBurns: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("a reverted burn transaction must not be persisted, found %d records", len(records))
	}
}

func TestBurnPersistsThenFailsOnMissingProofNodes(t *testing.T) {
	fc := &fakeChain{
		sentTx: fakePendingTx{hash: [32]byte{0xaa}, status: 1},
		block:  &types.Header{Number: big.NewInt(42), Root: common.Hash{}},
		proof:  accountproof.AccountProof{}, // no trie nodes: BuildCircuitInput must reject
	}
	f := testFlow(t, fc, &fakeContract{})
	_, err := f.Burn(context.Background(), burnParams())
	if wormerr.KindOf(err) != wormerr.MalformedProof {
		t.Fatalf("expected MalformedProof, got %v (%v)", wormerr.KindOf(err), err)
	}
	burns, err := f.Wallet.ListBurns()
	if err != nil {
		t.Fatalf("ListBurns: %v", err)
	}
	if len(burns) != 1 {
		t.Fatalf("a successfully mined burn transaction must be persisted before proving, found %d records", len(burns))
	}
	coins, err := f.Wallet.ListCoins()
	if err != nil {
		t.Fatalf("ListCoins: %v", err)
	}
	if len(coins) != 1 {
		t.Fatalf("expected the remaining-balance coin to be recorded, found %d", len(coins))
	}
}

func TestRecoverByIDRejectsUnknownID(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	_, err := f.RecoverByID(context.Background(), "does-not-exist", burnParams())
	if wormerr.KindOf(err) != wormerr.NotFound {
		t.Fatalf("expected NotFound, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestRecoverByIDRejectsCorruptFee(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	if err := f.Wallet.AppendBurn(wallet.BurnRecord{ID: "1", BurnKey: "7", Fee: "not-an-int", Spend: "0", Network: "anvil"}); err != nil {
		t.Fatalf("AppendBurn: %v", err)
	}
	_, err := f.RecoverByID(context.Background(), "1", burnParams())
	if wormerr.KindOf(err) != wormerr.StoreCorrupt {
		t.Fatalf("expected StoreCorrupt, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestRecoverManualReadsBalanceFromChain(t *testing.T) {
	fc := &fakeChain{
		balance: big.NewInt(5000),
		block:   &types.Header{Number: big.NewInt(7), Root: common.Hash{}},
		proof:   accountproof.AccountProof{}, // forces a deterministic failure past the balance read
	}
	f := testFlow(t, fc, &fakeContract{})
	burnKey := fp.NewFromUint64(1)
	p := burnParams()
	_, err := f.RecoverManual(context.Background(), burnKey, p)
	if wormerr.KindOf(err) != wormerr.MalformedProof {
		t.Fatalf("expected the flow to reach proveBurn (MalformedProof), got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestSpendRejectsUnknownCoin(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	_, err := f.Spend(context.Background(), SpendParams{CoinID: "missing", Spend: big.NewInt(1), Fee: big.NewInt(0)})
	if wormerr.KindOf(err) != wormerr.NotFound {
		t.Fatalf("expected NotFound, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestSpendRejectsOverspend(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	if err := f.Wallet.AppendCoin(wallet.CoinRecord{ID: "1", BurnKey: "9", Amount: "100", Network: "anvil"}); err != nil {
		t.Fatalf("AppendCoin: %v", err)
	}
	_, err := f.Spend(context.Background(), SpendParams{
		CoinID: "1", Spend: big.NewInt(90), Fee: big.NewInt(20), Receiver: commitment.Address{0x03},
	})
	if wormerr.KindOf(err) != wormerr.InvalidAmounts {
		t.Fatalf("expected InvalidAmounts, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestSpendRejectsCorruptAmount(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	if err := f.Wallet.AppendCoin(wallet.CoinRecord{ID: "1", BurnKey: "9", Amount: "not-an-int", Network: "anvil"}); err != nil {
		t.Fatalf("AppendCoin: %v", err)
	}
	_, err := f.Spend(context.Background(), SpendParams{CoinID: "1", Spend: big.NewInt(1), Fee: big.NewInt(0)})
	if wormerr.KindOf(err) != wormerr.StoreCorrupt {
		t.Fatalf("expected StoreCorrupt, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestComputeProofRejectsMismatchedProofAndBlockNumber(t *testing.T) {
	f := testFlow(t, &fakeChain{}, &fakeContract{})
	proof := &accountproof.AccountProof{}
	_, err := f.ComputeProof(context.Background(), ComputeProofParams{
		BurnKey:       fp.NewFromUint64(1),
		Amount:        big.NewInt(100),
		ProverFee:     big.NewInt(0),
		BroadcasterFee: big.NewInt(0),
		Spend:         big.NewInt(0),
		Reveal:        big.NewInt(0),
		SuppliedProof: proof,
		BlockNumber:   nil,
	})
	if wormerr.KindOf(err) != wormerr.BadRequest {
		t.Fatalf("expected BadRequest, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestComputeProofSelfFetchPropagatesMalformedProof(t *testing.T) {
	fc := &fakeChain{
		block: &types.Header{Number: big.NewInt(3), Root: common.Hash{}},
		proof: accountproof.AccountProof{},
	}
	f := testFlow(t, fc, &fakeContract{})
	_, err := f.ComputeProof(context.Background(), ComputeProofParams{
		BurnKey:        fp.NewFromUint64(1),
		Amount:         big.NewInt(100),
		ProverFee:      big.NewInt(0),
		BroadcasterFee: big.NewInt(0),
		Spend:          big.NewInt(0),
		Reveal:         big.NewInt(0),
	})
	if wormerr.KindOf(err) != wormerr.MalformedProof {
		t.Fatalf("expected MalformedProof, got %v (%v)", wormerr.KindOf(err), err)
	}
}

func TestMintArgsForMapsDerivedFields(t *testing.T) {
	burnKey := fp.NewFromUint64(1)
	p := burnParams()
	derived, err := commitment.Derive(burnKey, p.Receiver, p.Amount, p.ProverFee, p.BroadcasterFee, p.Spend, p.Reveal)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	proof := chain.GrothProof{PiA: [3]string{"1", "2", "3"}}
	args := mintArgsFor(proof, big.NewInt(9), derived, p)
	if args.Nullifier.Cmp(derived.Nullifier.BigInt()) != 0 {
		t.Fatal("mintArgsFor did not carry the derived nullifier through")
	}
	if args.RemainingCoin.Cmp(derived.RemainingCoin.BigInt()) != 0 {
		t.Fatal("mintArgsFor did not carry the derived remaining coin through")
	}
	if args.Recipient != p.Receiver || args.Prover != p.Prover {
		t.Fatal("mintArgsFor did not carry the caller-supplied addresses through")
	}
	if args.BlockNumber.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("expected block number 9, got %v", args.BlockNumber)
	}
}
