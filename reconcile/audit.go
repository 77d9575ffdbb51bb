package reconcile

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

// Report is a result of the ledger audit.
type Report struct {
	ID       uuid.UUID    `json:"id"`
	Time     time.Time    `json:"time"`
	Contract util.Uint160 `json:"contract"`
	Height   uint32       `json:"height"`

	Total    *big.Int `json:"total"`
	Sum      *big.Int `json:"sum"`
	Custody  *big.Int `json:"custody"`
	Accounts int      `json:"accounts"`
	Links    int      `json:"links"`
	Events   int      `json:"events"`

	Problems []string `json:"problems,omitempty"`
}

// OK returns true if no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addProblem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Prm groups Audit parameters.
type Prm struct {
	Contract util.Uint160
	Height   uint32

	// Stored is the ledger decoded from contract storage. Required.
	Stored *StorageDecoder
	// Replayed is the ledger rebuilt from notifications. Optional.
	Replayed *Ledger
	// Custody is the GAS balance of the contract. Optional.
	Custody *big.Int
}

// Audit checks ledger invariants:
//   - total equals the sum of all balances and the GAS held by the contract;
//   - no balance is above the limit;
//   - handle links are bidirectional;
//   - reentrancy lock is released;
//   - replayed ledger (if any) equals the stored one.
func Audit(prm Prm) *Report {
	l := prm.Stored.Ledger()

	r := &Report{
		ID:       uuid.New(),
		Time:     time.Now().UTC(),
		Contract: prm.Contract,
		Height:   prm.Height,
		Total:    l.Total,
		Sum:      l.Sum(),
		Custody:  prm.Custody,
		Accounts: len(l.Balances),
		Links:    len(l.Links),
	}

	if r.Sum.Cmp(r.Total) != 0 {
		r.addProblem("ledger total %s differs from sum of balances %s", r.Total, r.Sum)
	}

	if prm.Custody != nil && prm.Custody.Cmp(r.Total) != 0 {
		r.addProblem("ledger total %s differs from GAS custody %s", r.Total, prm.Custody)
	}

	if prm.Stored.Locked {
		r.addProblem("reentrancy lock is persisted")
	}

	if l.Owner.Equals(util.Uint160{}) {
		r.addProblem("owner is not set")
	}

	limit := l.BalanceLimit
	if limit == nil {
		limit, _ = new(big.Int).SetString(tipbotconst.MaxBalance, 10)
	}

	for _, acc := range l.Accounts() {
		if l.Balances[acc].Cmp(limit) > 0 {
			r.addProblem("account %s: balance %s is above the limit %s", acc.StringLE(), l.Balances[acc], limit)
		}
	}

	checkLinks(r, l)

	if prm.Replayed != nil {
		r.Events = prm.Replayed.Events
		compare(r, l, prm.Replayed)
	}

	return r
}

func checkLinks(r *Report, l *Ledger) {
	for handle, acc := range l.Handles {
		if back, ok := l.Links[acc]; !ok || back != handle {
			r.addProblem("handle %q: account %s is linked to %q", handle, acc.StringLE(), back)
		}
	}

	for acc, handle := range l.Links {
		if back, ok := l.Handles[handle]; !ok || !back.Equals(acc) {
			r.addProblem("account %s: handle %q is linked to %s", acc.StringLE(), handle, back.StringLE())
		}
	}
}

func compare(r *Report, stored, replayed *Ledger) {
	if stored.Total.Cmp(replayed.Total) != 0 {
		r.addProblem("stored total %s differs from replayed %s", stored.Total, replayed.Total)
	}

	for _, acc := range stored.Accounts() {
		if b := replayed.Balance(acc); b.Cmp(stored.Balances[acc]) != 0 {
			r.addProblem("account %s: stored balance %s differs from replayed %s", acc.StringLE(), stored.Balances[acc], b)
		}
	}

	for _, acc := range replayed.Accounts() {
		if _, ok := stored.Balances[acc]; !ok {
			r.addProblem("account %s: replayed balance %s is missing in storage", acc.StringLE(), replayed.Balances[acc])
		}
	}

	for handle, acc := range stored.Handles {
		if back, ok := replayed.Handles[handle]; !ok || !back.Equals(acc) {
			r.addProblem("handle %q: stored link to %s is not replayed", handle, acc.StringLE())
		}
	}

	if len(stored.Handles) != len(replayed.Handles) {
		r.addProblem("%d links are stored, %d replayed", len(stored.Handles), len(replayed.Handles))
	}

	if !stored.Owner.Equals(replayed.Owner) {
		r.addProblem("stored owner %s differs from replayed %s", stored.Owner.StringLE(), replayed.Owner.StringLE())
	}

	if stored.Paused != replayed.Paused {
		r.addProblem("stored pause flag %t differs from replayed %t", stored.Paused, replayed.Paused)
	}
}
