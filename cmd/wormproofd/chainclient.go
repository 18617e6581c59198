package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"wormcore/internal/accountproof"
	"wormcore/internal/chain"
	"wormcore/internal/commitment"
	"wormcore/internal/wormerr"
)

// ethChainClient is the concrete chain.Client this binary wires up,
// grounded on DanDo385-solidity-edu's geth/12-proofs tutorial
// (gethclient GetProof, ethclient HeaderByNumber) — the pack's only example
// of exactly this EIP-1186 proof-fetching call shape.
type ethChainClient struct {
	eth *ethclient.Client
}

func dialChainClient(ctx context.Context, rpcURL string) (*ethChainClient, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, wormerr.Wrap(wormerr.ChainRPCFailed, "dialing "+rpcURL, err)
	}
	return &ethChainClient{eth: c}, nil
}

func (c *ethChainClient) GetBalance(ctx context.Context, addr commitment.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.Address(addr), nil)
	if err != nil {
		return nil, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_getBalance", err)
	}
	return bal, nil
}

func (c *ethChainClient) GetTransactionCount(ctx context.Context, addr commitment.Address) (uint64, error) {
	n, err := c.eth.NonceAt(ctx, common.Address(addr), nil)
	if err != nil {
		return 0, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_getTransactionCount", err)
	}
	return n, nil
}

func (c *ethChainClient) GetChainID(ctx context.Context) (uint64, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_chainId", err)
	}
	return id.Uint64(), nil
}

func (c *ethChainClient) GetBlock(ctx context.Context, number *big.Int) (*types.Header, error) {
	header, err := c.eth.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_getBlockByNumber", err)
	}
	return header, nil
}

// GetProof converts the eth_getProof RPC response
// (balance/nonce/codeHash/storageHash/accountProof) into this repo's own
// accountproof.AccountProof. eth_getProof is issued through gethclient over
// the same RPC connection, since ethclient.Client has no GetProof method.
func (c *ethChainClient) GetProof(ctx context.Context, addr commitment.Address) (accountproof.AccountProof, error) {
	result, err := gethclient.New(c.eth.Client()).GetProof(ctx, common.Address(addr), nil, nil)
	if err != nil {
		return accountproof.AccountProof{}, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_getProof", err)
	}
	return accountproof.AccountProof{
		Address:      common.Address(addr),
		AccountProof: result.AccountProof,
		Balance:      result.Balance,
		CodeHash:     result.CodeHash,
		Nonce:        result.Nonce,
		StorageHash:  result.StorageHash,
	}, nil
}

// pendingTx adapts go-ethereum's *types.Transaction plus this client into
// the chain.PendingTx interface.
type pendingTx struct {
	eth *ethclient.Client
	tx  *types.Transaction
}

func (p pendingTx) Hash() [32]byte { return p.tx.Hash() }

func (p pendingTx) Receipt(ctx context.Context) (chain.Receipt, error) {
	r, err := p.eth.TransactionReceipt(ctx, p.tx.Hash())
	if err != nil {
		return chain.Receipt{}, wormerr.Wrap(wormerr.ChainRPCFailed, "eth_getTransactionReceipt", err)
	}
	return chain.Receipt{Status: r.Status}, nil
}

// SendTransaction is not implemented by the proof server: broadcasting
// the native burn transfer is a caller/CLI responsibility (spec.md §1
// lists the host-chain RPC client as an external collaborator only
// "specified at its interface" — this binary only ever needs the
// read-only proof-fetching half of chain.Client).
func (c *ethChainClient) SendTransaction(ctx context.Context, to commitment.Address, value *big.Int) (chain.PendingTx, error) {
	return nil, fmt.Errorf("wormproofd: SendTransaction is not supported by the proof server's read-only chain client")
}
