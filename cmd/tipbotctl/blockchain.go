package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// wrapper over Neo RPC providing blockchain services needed for the ledger
// audit.
type remoteBlockchain struct {
	rpc *rpcclient.Client

	currentBlock uint32
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection.
func newRemoteBlockchain(ctx context.Context, cfg *config) (*remoteBlockchain, error) {
	err := cfg.validateRPC()
	if err != nil {
		return nil, err
	}

	c, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	res := &remoteBlockchain{rpc: c}

	err = res.refresh()
	if err != nil {
		c.Close()
		return nil, err
	}

	return res, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// refresh updates the index of the latest block.
func (x *remoteBlockchain) refresh() error {
	n, err := x.rpc.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("empty blockchain")
	}

	x.currentBlock = n - 1

	return nil
}

// auditHeight returns the height of the latest block with a state root.
// State roots may lag behind the blocks, the previous block is used then.
func (x *remoteBlockchain) auditHeight() uint32 {
	if x.currentBlock == 0 {
		return 0
	}
	return x.currentBlock - 1
}

func (x *remoteBlockchain) contractState(contract util.Uint160) (state.Contract, error) {
	st, err := x.rpc.GetContractStateByHash(contract)
	if err != nil {
		return state.Contract{}, fmt.Errorf("get state of the requested contract by hash '%s': %w", contract.StringLE(), err)
	}
	return *st, nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract referenced by given address at the given height and passes them
// into f. iterateContractStorage breaks on any f's error and returns it.
func (x *remoteBlockchain) iterateContractStorage(height uint32, contract util.Uint160, f func(key, value []byte) error) error {
	stateRoot, err := x.rpc.GetStateRootByHeight(height)
	if err != nil {
		return fmt.Errorf("get state root at block #%d: %w", height, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the requested contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}

// iterateApplicationLogs passes execution results of all transactions from
// blocks [from, to] into f. It breaks on context cancellation and on any f's
// error.
func (x *remoteBlockchain) iterateApplicationLogs(ctx context.Context, from, to uint32, f func(*result.ApplicationLog) error) error {
	for i := from; i <= to; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := x.rpc.GetBlockByIndex(i)
		if err != nil {
			return fmt.Errorf("get block #%d: %w", i, err)
		}

		for _, tx := range b.Transactions {
			log, err := x.rpc.GetApplicationLog(tx.Hash(), nil)
			if err != nil {
				return fmt.Errorf("get application log of transaction %s: %w", tx.Hash().StringLE(), err)
			}

			err = f(log)
			if err != nil {
				return fmt.Errorf("transaction %s: %w", tx.Hash().StringLE(), err)
			}
		}
	}

	return nil
}

// custody returns GAS balance of the contract at the given height.
func (x *remoteBlockchain) custody(height uint32, contract util.Uint160) (*big.Int, error) {
	inv := invoker.NewHistoricAtHeight(height, x.rpc, nil)

	res, err := gas.NewReader(inv).BalanceOf(contract)
	if err != nil {
		return nil, fmt.Errorf("get GAS balance of the contract at block #%d: %w", height, err)
	}

	return res, nil
}
