package tipbot

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

func accountKey(addr interop.Hash160) []byte {
	return append([]byte{tipbotconst.AccountPrefix}, addr...)
}

func getBalance(ctx storage.Context, addr interop.Hash160) int {
	return common.GetInt(ctx, accountKey(addr))
}

// setBalance stores account balance, drained accounts are removed from the
// storage.
func setBalance(ctx storage.Context, addr interop.Hash160, balance int) {
	common.PutInt(ctx, accountKey(addr), balance)
}

func getBalanceLimit(ctx storage.Context) int {
	data := storage.Get(ctx, []byte{tipbotconst.BalanceLimitKey})
	if data != nil {
		return data.(int)
	}

	return std.Atoi(tipbotconst.MaxBalance, 10)
}

// credit adds amount to the account balance and returns the new balance.
func credit(ctx storage.Context, addr interop.Hash160, amount int) int {
	balance := getBalance(ctx, addr) + amount
	if balance > getBalanceLimit(ctx) {
		panic(tipbotconst.ErrOverflow)
	}

	setBalance(ctx, addr, balance)

	return balance
}

// debit subtracts amount from the account balance and returns the new balance.
func debit(ctx storage.Context, addr interop.Hash160, amount int) int {
	balance := getBalance(ctx, addr)
	if amount > balance {
		panic(tipbotconst.ErrInsufficientFunds)
	}

	balance -= amount
	setBalance(ctx, addr, balance)

	return balance
}

func getTotal(ctx storage.Context) int {
	return common.GetInt(ctx, []byte{tipbotconst.TotalKey})
}

// changeTotal keeps the sum of all balances in sync with deposits and
// withdrawals.
func changeTotal(ctx storage.Context, diff int) {
	common.PutInt(ctx, []byte{tipbotconst.TotalKey}, getTotal(ctx)+diff)
}
