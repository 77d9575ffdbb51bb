package tipbot

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

// NormalizeHandle converts a chat handle the way users type it ("@Alice")
// into the form stored by the contract ("alice").
func NormalizeHandle(handle string) (string, error) {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if len(h) < tipbotconst.MinHandleLength || len(h) > tipbotconst.MaxHandleLength {
		return "", fmt.Errorf("%w: %q: length must be in [%d, %d]", ErrInvalidHandle, handle,
			tipbotconst.MinHandleLength, tipbotconst.MaxHandleLength)
	}

	for i := 0; i < len(h); i++ {
		c := h[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return "", fmt.Errorf("%w: %q: unexpected character %q", ErrInvalidHandle, handle, c)
		}
	}

	return h, nil
}

// Account resolves the handle into the account linked to it. Handle is
// normalized first. [ErrUnknownHandle] is returned if there is no such link.
func (c *ContractReader) Account(handle string) (util.Uint160, error) {
	h, err := NormalizeHandle(handle)
	if err != nil {
		return util.Uint160{}, err
	}

	item, err := unwrap.Item(c.invoker.Call(c.hash, "resolve", h))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("resolve %q: %w", h, ParseError(err))
	}

	if _, ok := item.(stackitem.Null); ok {
		return util.Uint160{}, fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}

	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, fmt.Errorf("resolve %q: %w", h, err)
	}

	return util.Uint160DecodeBytesBE(b)
}

// Handle returns the handle linked to the account. [ErrNotLinked] is
// returned if there is no such link.
func (c *ContractReader) Handle(account util.Uint160) (string, error) {
	h, err := c.HandleOf(account)
	if err != nil {
		return "", fmt.Errorf("handleOf: %w", ParseError(err))
	}

	if h == "" {
		return "", ErrNotLinked
	}

	return h, nil
}

// Deposit creates a transaction transferring GAS from the given account to
// the contract, so the amount is credited to the same account in the ledger.
// This transaction is signed and immediately sent to the network.
func (c *Contract) Deposit(from util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	return c.DepositFor(from, from, amount)
}

// DepositFor is the same as [Contract.Deposit], but the amount is credited
// to the ledger account of beneficiary.
func (c *Contract) DepositFor(from, beneficiary util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	if amount == nil || amount.Sign() <= 0 {
		return util.Uint256{}, 0, ErrZeroAmount
	}

	var data any
	if !beneficiary.Equals(from) {
		data = beneficiary
	}

	h, vub, err := gas.New(c.actor).Transfer(from, c.hash, amount, data)
	if err != nil {
		return h, vub, ParseError(err)
	}

	return h, vub, nil
}

// DepositAndLink creates a transaction transferring GAS from the given account
// to the contract with the normalized handle as transfer data, so the account
// is linked to the handle and credited within a single call.
func (c *Contract) DepositAndLink(from util.Uint160, handle string, amount *big.Int) (util.Uint256, uint32, error) {
	if amount == nil || amount.Sign() <= 0 {
		return util.Uint256{}, 0, ErrZeroAmount
	}

	h, err := NormalizeHandle(handle)
	if err != nil {
		return util.Uint256{}, 0, err
	}

	txHash, vub, err := gas.New(c.actor).Transfer(from, c.hash, amount, h)
	if err != nil {
		return txHash, vub, ParseError(err)
	}

	return txHash, vub, nil
}

// TipHandle normalizes the handle and sends a tip transaction.
func (c *Contract) TipHandle(from util.Uint160, handle string, amount *big.Int) (util.Uint256, uint32, error) {
	h, err := NormalizeHandle(handle)
	if err != nil {
		return util.Uint256{}, 0, err
	}

	txHash, vub, err := c.Tip(from, h, amount)
	if err != nil {
		return txHash, vub, ParseError(err)
	}

	return txHash, vub, nil
}

// LinkHandle normalizes the handle and sends a link transaction.
func (c *Contract) LinkHandle(account util.Uint160, handle string) (util.Uint256, uint32, error) {
	h, err := NormalizeHandle(handle)
	if err != nil {
		return util.Uint256{}, 0, err
	}

	txHash, vub, err := c.Link(account, h)
	if err != nil {
		return txHash, vub, ParseError(err)
	}

	return txHash, vub, nil
}

// WithdrawAll withdraws the whole ledger balance of the account. It returns
// [ErrZeroAmount] if there is nothing to withdraw.
func (c *Contract) WithdrawAll(account util.Uint160) (util.Uint256, uint32, *big.Int, error) {
	balance, err := c.BalanceOf(account)
	if err != nil {
		return util.Uint256{}, 0, nil, fmt.Errorf("balanceOf: %w", err)
	}

	if balance.Sign() == 0 {
		return util.Uint256{}, 0, balance, ErrZeroAmount
	}

	h, vub, err := c.Withdraw(account, balance)
	if err != nil {
		return h, vub, balance, ParseError(err)
	}

	return h, vub, balance, nil
}
