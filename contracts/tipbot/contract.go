package tipbot

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	owner := runtime.GetScriptContainer().Sender
	if data != nil {
		args := data.(struct {
			owner interop.Hash160
		})
		owner = args.owner
	}

	if !isValidOwner(owner) {
		panic(tipbotconst.ErrInvalidOwner)
	}

	storage.Put(ctx, []byte{tipbotconst.OwnerKey}, owner)

	var previous interop.Hash160
	runtime.Notify(tipbotconst.OwnerChangedEvent, previous, owner)

	runtime.Log("tipbot contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(nefFile, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("tipbot contract updated")
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// It credits transferred GAS to the sender's ledger account. If data is
// a valid chat handle, the sender is linked to it before the deposit. If
// data is a Hash160, the account specified in data is credited instead.
//
// It produces LinkChanged (if a new link is made) and Deposited notifications.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()
	checkNotPaused(ctx)
	checkAmount(amount)

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		panic(tipbotconst.ErrUnsupportedToken)
	}

	var (
		rcv    = from
		handle string
	)

	if data != nil {
		handle = data.(string)
		if !isValidHandle(handle) {
			handle = ""
			rcv = data.(interop.Hash160)
		}
	}

	if !isValidAccount(rcv) || rcv.Equals(runtime.GetExecutingScriptHash()) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	lock(ctx)

	if handle != "" {
		linkAccount(ctx, rcv, handle)
	}

	balance := credit(ctx, rcv, amount)
	changeTotal(ctx, amount)

	runtime.Notify(tipbotconst.DepositedEvent, rcv, amount, balance)

	unlock(ctx)
}

// Withdraw method debits the account balance and transfers the same amount
// of GAS from the contract to the account. The ledger is updated before
// the transfer, so a receiver contract can't withdraw the same funds twice.
//
// It produces Withdrawn notification.
func Withdraw(account interop.Hash160, amount int) {
	ctx := storage.GetContext()
	checkNotPaused(ctx)
	checkAmount(amount)

	if !isValidAccount(account) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	common.CheckAccountWitness(account)

	lock(ctx)

	balance := debit(ctx, account, amount)
	changeTotal(ctx, -amount)

	if !gas.Transfer(runtime.GetExecutingScriptHash(), account, amount, nil) {
		panic(tipbotconst.ErrTransferFailed)
	}

	runtime.Notify(tipbotconst.WithdrawnEvent, account, amount, balance)

	unlock(ctx)
}

// Tip method moves amount from the account to the account linked to the
// handle. If tip fee is set, it is charged from the sender on top of the
// amount and credited to the contract owner.
//
// It produces FeeCharged (if any fee is charged) and Tipped notifications.
func Tip(from interop.Hash160, handle string, amount int) {
	ctx := storage.GetContext()
	checkNotPaused(ctx)
	checkAmount(amount)

	if !isValidAccount(from) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	common.CheckAccountWitness(from)

	lock(ctx)

	to := resolveHandle(ctx, handle)
	if to == nil {
		panic(tipbotconst.ErrUnknownHandle)
	}

	if to.Equals(from) {
		panic(tipbotconst.ErrSelfTip)
	}

	var (
		fromBalance      = getBalance(ctx, from) - amount
		toBalance        = getBalance(ctx, to) + amount
		fee              = getTipFee(ctx)
		limit            = getBalanceLimit(ctx)
		collector        interop.Hash160
		collectorBalance int
		charged          bool
	)

	if fee > 0 {
		collector = getOwner(ctx)
		if !collector.Equals(from) {
			charged = true
			fromBalance -= fee

			if collector.Equals(to) {
				toBalance += fee
			} else {
				collectorBalance = getBalance(ctx, collector) + fee
			}
		}
	}

	if fromBalance < 0 {
		panic(tipbotconst.ErrInsufficientFunds)
	}

	if toBalance > limit || collectorBalance > limit {
		panic(tipbotconst.ErrOverflow)
	}

	setBalance(ctx, from, fromBalance)
	setBalance(ctx, to, toBalance)

	if charged {
		if !collector.Equals(to) {
			setBalance(ctx, collector, collectorBalance)
		}

		runtime.Notify(tipbotconst.FeeChargedEvent, from, collector, fee)
	}

	runtime.Notify(tipbotconst.TippedEvent, from, to, amount, fromBalance, toBalance)

	unlock(ctx)
}

// Link method binds the chat handle to the account. Both the handle and
// the account may be linked only once. Linking the same pair again does
// nothing.
//
// It produces LinkChanged notification.
func Link(account interop.Hash160, handle string) {
	ctx := storage.GetContext()

	if !isValidAccount(account) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	checkHandle(handle)
	common.CheckAccountWitness(account)

	lock(ctx)
	linkAccount(ctx, account, handle)
	unlock(ctx)
}

// Unlink method removes the link of the account. Balance of the account
// is not affected.
//
// It produces LinkChanged notification.
func Unlink(account interop.Hash160) {
	ctx := storage.GetContext()

	if !isValidAccount(account) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	common.CheckAccountWitness(account)

	lock(ctx)

	handle := linkedHandle(ctx, account)
	if handle == "" {
		panic(tipbotconst.ErrNotLinked)
	}

	deleteLink(ctx, account, handle)

	runtime.Notify(tipbotconst.LinkChangedEvent, account, handle, false)

	unlock(ctx)
}

// UnlinkAndWithdraw method removes the link of the account and withdraws
// the whole account balance, if any, in a single call.
//
// It produces LinkChanged and Withdrawn (if balance was not zero)
// notifications.
func UnlinkAndWithdraw(account interop.Hash160) {
	ctx := storage.GetContext()
	checkNotPaused(ctx)

	if !isValidAccount(account) {
		panic(tipbotconst.ErrInvalidAccount)
	}

	common.CheckAccountWitness(account)

	lock(ctx)

	handle := linkedHandle(ctx, account)
	if handle == "" {
		panic(tipbotconst.ErrNotLinked)
	}

	deleteLink(ctx, account, handle)

	amount := getBalance(ctx, account)
	if amount > 0 {
		debit(ctx, account, amount)
		changeTotal(ctx, -amount)

		if !gas.Transfer(runtime.GetExecutingScriptHash(), account, amount, nil) {
			panic(tipbotconst.ErrTransferFailed)
		}
	}

	runtime.Notify(tipbotconst.LinkChangedEvent, account, handle, false)

	if amount > 0 {
		runtime.Notify(tipbotconst.WithdrawnEvent, account, amount, 0)
	}

	unlock(ctx)
}

// SetOwner method transfers contract ownership. It can be invoked only
// by the current owner.
//
// It produces OwnerChanged notification.
func SetOwner(owner interop.Hash160) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	if !isValidOwner(owner) {
		panic(tipbotconst.ErrInvalidOwner)
	}

	lock(ctx)

	previous := getOwner(ctx)
	storage.Put(ctx, []byte{tipbotconst.OwnerKey}, owner)

	runtime.Notify(tipbotconst.OwnerChangedEvent, previous, owner)

	unlock(ctx)
}

// SetPaused method enables or disables deposits, withdrawals and tips.
// Linking and read methods work regardless of the flag. It can be invoked
// only by the owner.
//
// It produces PauseChanged notification.
func SetPaused(paused bool) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	lock(ctx)

	if paused {
		storage.Put(ctx, []byte{tipbotconst.PausedKey}, []byte{1})
	} else {
		storage.Delete(ctx, []byte{tipbotconst.PausedKey})
	}

	runtime.Notify(tipbotconst.PauseChangedEvent, paused)

	unlock(ctx)
}

// SetTipFee method sets the fee charged for every tip. Zero disables fees.
// It can be invoked only by the owner.
//
// It produces ConfigChanged notification.
func SetTipFee(fee int) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	if fee < 0 {
		panic(tipbotconst.ErrInvalidConfig)
	}

	lock(ctx)

	common.PutInt(ctx, []byte{tipbotconst.TipFeeKey}, fee)

	runtime.Notify(tipbotconst.ConfigChangedEvent, tipbotconst.TipFeeConfig, fee)

	unlock(ctx)
}

// SetBalanceLimit method sets the maximum balance of a single account. Already
// existing balances above the limit are kept but can't be credited. It can be
// invoked only by the owner.
//
// It produces ConfigChanged notification.
func SetBalanceLimit(limit int) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	if limit <= 0 {
		panic(tipbotconst.ErrInvalidConfig)
	}

	lock(ctx)

	storage.Put(ctx, []byte{tipbotconst.BalanceLimitKey}, limit)

	runtime.Notify(tipbotconst.ConfigChangedEvent, tipbotconst.BalanceLimitConfig, limit)

	unlock(ctx)
}

// BalanceOf method returns ledger balance of the account. Unknown accounts
// have zero balance.
func BalanceOf(account interop.Hash160) int {
	if !isValidAccount(account) {
		return 0
	}

	ctx := storage.GetReadOnlyContext()
	return getBalance(ctx, account)
}

// BalanceOfHandle method returns ledger balance of the account linked to
// the handle or zero if handle is unknown.
func BalanceOfHandle(handle string) int {
	ctx := storage.GetReadOnlyContext()

	account := resolveHandle(ctx, handle)
	if account == nil {
		return 0
	}

	return getBalance(ctx, account)
}

// Resolve method returns account linked to the handle or null.
func Resolve(handle string) interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return resolveHandle(ctx, handle)
}

// HandleOf method returns handle linked to the account or empty string.
func HandleOf(account interop.Hash160) string {
	if !isValidAccount(account) {
		return ""
	}

	ctx := storage.GetReadOnlyContext()
	return linkedHandle(ctx, account)
}

// TotalBalance method returns sum of all ledger balances. It always equals
// GAS balance of the contract.
func TotalBalance() int {
	ctx := storage.GetReadOnlyContext()
	return getTotal(ctx)
}

// Owner method returns current contract owner.
func Owner() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getOwner(ctx)
}

// IsPaused method returns true if deposits, withdrawals and tips are disabled.
func IsPaused() bool {
	ctx := storage.GetReadOnlyContext()
	return isPaused(ctx)
}

// TipFee method returns the fee charged for every tip.
func TipFee() int {
	ctx := storage.GetReadOnlyContext()
	return getTipFee(ctx)
}

// BalanceLimit method returns the maximum balance of a single account.
func BalanceLimit() int {
	ctx := storage.GetReadOnlyContext()
	return getBalanceLimit(ctx)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}
