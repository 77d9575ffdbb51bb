package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/nspcc-dev/tipbot-contract/rpc/tipbot"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for Tipbot contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)

	// GetApplicationLog returns execution results of the persisted transaction.
	GetApplicationLog(util.Uint256, *trigger.Type) (*result.ApplicationLog, error)
}

// Prm groups all parameters of the Tipbot contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// Contract address depends on it. Updates are allowed only if the account
	// witnesses the committee.
	LocalAccount *wallet.Account

	NEF      nef.File
	Manifest manifest.Manifest

	// Initial owner of the contract. Zero value means LocalAccount.
	Owner util.Uint160
}

// Result describes the outcome of Deploy.
type Result struct {
	// Address of the contract.
	Hash util.Uint160
	// Transaction that deployed or updated the contract. Zero if nothing
	// was done.
	Tx util.Uint256
	// Updated is set if the existing contract was updated.
	Updated bool
}

// Deploy deploys Tipbot contract to the blockchain represented by given
// Prm.Blockchain. If the contract is already deployed by the same account,
// it is updated when deployed version is lower than the current one, and left
// as is otherwise.
//
// Deploy waits for the transaction to be persisted and aborts by context.
func Deploy(ctx context.Context, prm Prm) (Result, error) {
	// wrap the parent context into the context of the current function so that
	// transaction wait routines do not leak
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var res Result

	localActor, err := newActor(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return res, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	res.Hash = state.CreateContractHash(localActor.Sender(), prm.NEF.Checksum, prm.Manifest.Name)

	l := prm.Logger.With(zap.String("contract", prm.Manifest.Name), zap.Stringer("address", res.Hash))

	_, err = prm.Blockchain.GetContractStateByHash(res.Hash)
	if err != nil {
		if !isErrContractNotFound(err) {
			return res, fmt.Errorf("get contract state: %w", err)
		}

		l.Info("contract is missing on the chain, deploying...")

		owner := prm.Owner
		if owner.Equals(util.Uint160{}) {
			owner = localActor.Sender()
		}

		txHash, vub, err := management.New(localActor).Deploy(&prm.NEF, &prm.Manifest, []any{owner})
		if err != nil {
			return res, fmt.Errorf("send deploy transaction: %w", tipbot.ParseError(err))
		}

		l.Info("deploy transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

		err = await(ctx, localActor, txHash, vub)
		if err != nil {
			return res, fmt.Errorf("deploy transaction %s: %w", txHash.StringLE(), err)
		}

		l.Info("contract successfully deployed", zap.Stringer("owner", owner))

		res.Tx = txHash

		return res, nil
	}

	version, err := tipbot.NewReader(localActor, res.Hash).Version()
	if err != nil {
		return res, fmt.Errorf("get version of the deployed contract: %w", err)
	}

	if !version.IsInt64() || version.Int64() >= common.Version {
		l.Info("contract is already deployed and up to date", zap.Stringer("version", version))
		return res, nil
	}

	l.Info("contract is outdated, updating...",
		zap.Stringer("deployed", version), zap.Int("current", common.Version))

	rawNEF, err := prm.NEF.Bytes()
	if err != nil {
		return res, fmt.Errorf("encode NEF: %w", err)
	}

	rawManifest, err := json.Marshal(prm.Manifest)
	if err != nil {
		return res, fmt.Errorf("encode manifest: %w", err)
	}

	txHash, vub, err := tipbot.New(localActor, res.Hash).Update(rawNEF, rawManifest, nil)
	if err != nil {
		return res, fmt.Errorf("send update transaction: %w", tipbot.ParseError(err))
	}

	l.Info("update transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	err = await(ctx, localActor, txHash, vub)
	if err != nil {
		return res, fmt.Errorf("update transaction %s: %w", txHash.StringLE(), err)
	}

	l.Info("contract successfully updated")

	res.Tx = txHash
	res.Updated = true

	return res, nil
}

func newActor(b Blockchain, acc *wallet.Account) (*actor.Actor, error) {
	signers := []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account: acc.ScriptHash(),
			Scopes:  transaction.CalledByEntry,
		},
		Account: acc,
	}}

	return actor.NewTuned(b, signers, actor.Options{
		CheckerModifier: alignedTransactionModifier(func() uint32 {
			h, err := b.GetBlockCount()
			if err != nil || h == 0 {
				return 0
			}
			return h - 1
		}),
	})
}

// await waits for the transaction to be persisted and checks its execution
// state.
func await(ctx context.Context, a *actor.Actor, txHash util.Uint256, vub uint32) error {
	aer, err := a.WaitAny(ctx, vub, txHash)
	if err != nil {
		return fmt.Errorf("wait for transaction: %w", err)
	}

	if aer.VMState != vmstate.Halt {
		return fmt.Errorf("transaction failed: %w", tipbot.FaultError(aer.FaultException))
	}

	return nil
}

func isErrContractNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Unknown contract")
}

// errNoHalt is returned by the test invocation of non-HALT transaction.
var errNoHalt = errors.New("invocation did not finish with HALT")

// returns actor.TransactionCheckerModifier which checks that invocation
// finished with 'HALT' state and, if so, sets transaction's nonce and
// ValidUntilBlock to 100*N and 100*(N+1) correspondingly, where
// 100*N <= current height < 100*(N+1). Repeated deployment attempts
// within the same span produce the same transaction.
func alignedTransactionModifier(getBlockchainHeight func() uint32) actor.TransactionCheckerModifier {
	return func(r *result.Invoke, tx *transaction.Transaction) error {
		err := actor.DefaultCheckerModifier(r, tx)
		if err != nil {
			return fmt.Errorf("%w: %w", errNoHalt, tipbot.ParseError(err))
		}

		curHeight := getBlockchainHeight()
		const span = 100
		n := curHeight / span

		tx.Nonce = n * span

		if math.MaxUint32-span > tx.Nonce {
			tx.ValidUntilBlock = tx.Nonce + span
		} else {
			tx.ValidUntilBlock = math.MaxUint32
		}

		return nil
	}
}
