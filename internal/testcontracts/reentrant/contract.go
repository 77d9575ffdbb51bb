// Package reentrant is a GAS receiver used in Tipbot contract tests. It keeps
// its funds in the ledger and, when armed, calls the ledger back from
// onNEP17Payment of a withdrawal.
package reentrant

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Modes of the receiver.
const (
	ModeNone     = "none"
	ModeWithdraw = "withdraw"
	ModeDeposit  = "deposit"
)

const (
	ledgerKey   = "ledger"
	modeKey     = "mode"
	paymentsKey = "payments"
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	storage.Put(storage.GetContext(), ledgerKey, data.(interop.Hash160))
}

func getLedger(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, ledgerKey).(interop.Hash160)
}

// OnNEP17Payment counts received GAS payments and calls the ledger back
// if the payment comes from the ledger and the receiver is armed.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()

	payments := storage.Get(ctx, paymentsKey)
	if payments == nil {
		payments = 0
	}
	storage.Put(ctx, paymentsKey, payments.(int)+1)

	ledger := getLedger(ctx)
	if !from.Equals(ledger) {
		return
	}

	self := runtime.GetExecutingScriptHash()

	mode := storage.Get(ctx, modeKey)
	if mode == nil {
		return
	}

	switch mode.(string) {
	case ModeWithdraw:
		contract.Call(ledger, "withdraw", contract.All, self, amount)
	case ModeDeposit:
		gas.Transfer(self, ledger, amount, nil)
	}
}

// SetMode arms the receiver.
func SetMode(mode string) {
	storage.Put(storage.GetContext(), modeKey, mode)
}

// Deposit transfers GAS of the receiver to the ledger.
func Deposit(amount int) {
	ctx := storage.GetReadOnlyContext()
	if !gas.Transfer(runtime.GetExecutingScriptHash(), getLedger(ctx), amount, nil) {
		panic("deposit failed")
	}
}

// Withdraw withdraws GAS of the receiver from the ledger.
func Withdraw(amount int) {
	ctx := storage.GetReadOnlyContext()
	contract.Call(getLedger(ctx), "withdraw", contract.All, runtime.GetExecutingScriptHash(), amount)
}

// Link links the receiver to the handle.
func Link(handle string) {
	ctx := storage.GetReadOnlyContext()
	contract.Call(getLedger(ctx), "link", contract.All, runtime.GetExecutingScriptHash(), handle)
}

// Payments returns the number of received GAS payments.
func Payments() int {
	val := storage.Get(storage.GetReadOnlyContext(), paymentsKey)
	if val == nil {
		return 0
	}
	return val.(int)
}
