package tipbot

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

func getOwner(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, []byte{tipbotconst.OwnerKey}).(interop.Hash160)
}

// checkOwner panics unless the transaction is witnessed by the current owner.
func checkOwner(ctx storage.Context) {
	common.CheckOwnerWitness(getOwner(ctx))
}

func isPaused(ctx storage.Context) bool {
	return storage.Get(ctx, []byte{tipbotconst.PausedKey}) != nil
}

func checkNotPaused(ctx storage.Context) {
	if isPaused(ctx) {
		panic(tipbotconst.ErrContractPaused)
	}
}

// lock marks the contract as busy with a mutating call. Nested mutating call
// (e.g. from onNEP17Payment of the withdrawal receiver) panics. Callers must
// call unlock explicitly at the end of every successful path. A failed call
// FAULTs and its lock is discarded with the rest of the storage changes.
func lock(ctx storage.Context) {
	key := []byte{tipbotconst.LockKey}
	if storage.Get(ctx, key) != nil {
		panic(tipbotconst.ErrReentrantCall)
	}

	storage.Put(ctx, key, []byte{1})
}

func unlock(ctx storage.Context) {
	storage.Delete(ctx, []byte{tipbotconst.LockKey})
}

func getTipFee(ctx storage.Context) int {
	return common.GetInt(ctx, []byte{tipbotconst.TipFeeKey})
}

func checkAmount(amount int) {
	if amount < 0 {
		panic(tipbotconst.ErrNegativeAmount)
	}

	if amount == 0 {
		panic(tipbotconst.ErrZeroAmount)
	}

	// No account can ever hold more than MaxBalance.
	if amount > std.Atoi(tipbotconst.MaxBalance, 10) {
		panic(tipbotconst.ErrOverflow)
	}
}

// isValidAccount returns true if the provided address is a valid Uint160.
func isValidAccount(addr interop.Hash160) bool {
	return addr != nil && len(addr) == interop.Hash160Len
}

// isValidOwner returns true if the provided address is a valid non-zero Uint160.
func isValidOwner(addr interop.Hash160) bool {
	if !isValidAccount(addr) {
		return false
	}

	for i := 0; i < len(addr); i++ {
		if addr[i] != 0 {
			return true
		}
	}

	return false
}
