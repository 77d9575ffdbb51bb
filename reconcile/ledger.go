/*
Package reconcile rebuilds Tipbot ledger state off-chain and checks it.

Ledger can be obtained in two independent ways: by replaying contract
notifications from application logs (Ledger.ApplyLog) and by decoding raw
contract storage (FromStorage). Audit compares both with each other and with
GAS held by the contract.
*/
package reconcile

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
	"github.com/nspcc-dev/tipbot-contract/rpc/tipbot"
)

// ErrMismatch is returned when a notification doesn't agree with the state
// built from the previous ones.
var ErrMismatch = errors.New("ledger mismatch")

// Ledger is an off-chain copy of Tipbot contract state.
type Ledger struct {
	Owner  util.Uint160
	Paused bool
	TipFee *big.Int
	// BalanceLimit is nil if the limit was never changed.
	BalanceLimit *big.Int

	Total    *big.Int
	Balances map[util.Uint160]*big.Int

	// Handles maps handles to accounts, Links maps accounts to handles.
	Handles map[string]util.Uint160
	Links   map[util.Uint160]string

	// Events is the number of applied notifications.
	Events int
}

// NewLedger returns empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		TipFee:   new(big.Int),
		Total:    new(big.Int),
		Balances: make(map[util.Uint160]*big.Int),
		Handles:  make(map[string]util.Uint160),
		Links:    make(map[util.Uint160]string),
	}
}

// Balance returns ledger balance of the account.
func (l *Ledger) Balance(acc util.Uint160) *big.Int {
	if b, ok := l.Balances[acc]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Accounts returns accounts with non-zero balance in a stable order.
func (l *Ledger) Accounts() []util.Uint160 {
	res := make([]util.Uint160, 0, len(l.Balances))
	for acc := range l.Balances {
		res = append(res, acc)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Less(res[j]) })

	return res
}

// Sum returns sum of all balances.
func (l *Ledger) Sum() *big.Int {
	sum := new(big.Int)
	for _, b := range l.Balances {
		sum.Add(sum, b)
	}
	return sum
}

func (l *Ledger) setBalance(acc util.Uint160, b *big.Int) {
	if b.Sign() == 0 {
		delete(l.Balances, acc)
		return
	}
	l.Balances[acc] = new(big.Int).Set(b)
}

// change adds diff to the balance of the account and compares the result
// with the balance reported by the notification (if any).
func (l *Ledger) change(acc util.Uint160, diff, reported *big.Int) error {
	b := l.Balance(acc)
	b.Add(b, diff)

	if reported != nil && b.Cmp(reported) != 0 {
		return fmt.Errorf("%w: account %s: expected balance %s, notification has %s",
			ErrMismatch, acc.StringLE(), b, reported)
	}

	if b.Sign() < 0 {
		return fmt.Errorf("%w: account %s: negative balance %s", ErrMismatch, acc.StringLE(), b)
	}

	l.setBalance(acc, b)

	return nil
}

// ApplyLog applies notifications of the contract from the application log.
// Notifications of other contracts and FAULTed executions are skipped.
func (l *Ledger) ApplyLog(contract util.Uint160, log *result.ApplicationLog) error {
	if log == nil {
		return errors.New("nil application log")
	}

	for i := range log.Executions {
		err := l.ApplyExecution(contract, log.Executions[i])
		if err != nil {
			return fmt.Errorf("log of %s, execution #%d: %w", log.Container.StringLE(), i, err)
		}
	}

	return nil
}

// ApplyExecution applies notifications of the contract produced by the
// execution. FAULTed executions are skipped.
func (l *Ledger) ApplyExecution(contract util.Uint160, ex state.Execution) error {
	if ex.VMState != vmstate.Halt {
		return nil
	}

	for j, ev := range ex.Events {
		if !ev.ScriptHash.Equals(contract) {
			continue
		}

		err := l.Apply(ev)
		if err != nil {
			return fmt.Errorf("event #%d: %w", j, err)
		}
	}

	return nil
}

// Apply applies a single notification of the contract to the ledger.
// Unknown notifications are ignored.
func (l *Ledger) Apply(ev state.NotificationEvent) error {
	var err error

	switch ev.Name {
	case tipbotconst.DepositedEvent:
		e := new(tipbot.DepositedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = l.change(e.Who, e.Amount, e.Balance)
			if err == nil {
				l.Total.Add(l.Total, e.Amount)
			}
		}
	case tipbotconst.WithdrawnEvent:
		e := new(tipbot.WithdrawnEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = l.change(e.Who, new(big.Int).Neg(e.Amount), e.Balance)
			if err == nil {
				l.Total.Sub(l.Total, e.Amount)
			}
		}
	case tipbotconst.FeeChargedEvent:
		e := new(tipbot.FeeChargedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = l.change(e.From, new(big.Int).Neg(e.Amount), nil)
			if err == nil {
				err = l.change(e.Collector, e.Amount, nil)
			}
		}
	case tipbotconst.TippedEvent:
		e := new(tipbot.TippedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = l.change(e.From, new(big.Int).Neg(e.Amount), e.FromBalance)
			if err == nil {
				err = l.change(e.To, e.Amount, e.ToBalance)
			}
		}
	case tipbotconst.LinkChangedEvent:
		e := new(tipbot.LinkChangedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = l.applyLink(e)
		}
	case tipbotconst.OwnerChangedEvent:
		e := new(tipbot.OwnerChangedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			l.Owner = e.Owner
		}
	case tipbotconst.PauseChangedEvent:
		e := new(tipbot.PauseChangedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			l.Paused = e.Paused
		}
	case tipbotconst.ConfigChangedEvent:
		e := new(tipbot.ConfigChangedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			switch e.Key {
			case tipbotconst.TipFeeConfig:
				l.TipFee = e.Value
			case tipbotconst.BalanceLimitConfig:
				l.BalanceLimit = e.Value
			default:
				err = fmt.Errorf("unknown config key %q", e.Key)
			}
		}
	default:
		return nil
	}

	if err != nil {
		return fmt.Errorf("%s: %w", ev.Name, err)
	}

	l.Events++

	return nil
}

func (l *Ledger) applyLink(e *tipbot.LinkChangedEvent) error {
	if !e.Linked {
		if l.Links[e.Who] != e.Handle {
			return fmt.Errorf("%w: account %s is not linked to %q", ErrMismatch, e.Who.StringLE(), e.Handle)
		}

		delete(l.Links, e.Who)
		delete(l.Handles, e.Handle)

		return nil
	}

	if _, ok := l.Handles[e.Handle]; ok {
		return fmt.Errorf("%w: handle %q is already linked", ErrMismatch, e.Handle)
	}

	if _, ok := l.Links[e.Who]; ok {
		return fmt.Errorf("%w: account %s is already linked", ErrMismatch, e.Who.StringLE())
	}

	l.Handles[e.Handle] = e.Who
	l.Links[e.Who] = e.Handle

	return nil
}
