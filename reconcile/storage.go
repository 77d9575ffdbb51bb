package reconcile

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

// StorageDecoder builds Ledger from raw storage items of the contract. Keys
// are expected without contract ID prefix, as returned by findstates RPC.
type StorageDecoder struct {
	l *Ledger

	// Locked is set if reentrancy lock record is found. It must never be
	// persisted.
	Locked bool
}

// NewStorageDecoder returns decoder of an empty storage.
func NewStorageDecoder() *StorageDecoder {
	return &StorageDecoder{l: NewLedger()}
}

// Ledger returns ledger built from all items passed to Put.
func (d *StorageDecoder) Ledger() *Ledger {
	return d.l
}

// Put decodes single storage item. Its signature allows to pass it as
// storage iteration callback.
func (d *StorageDecoder) Put(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty storage key")
	}

	if len(key) == 1 {
		return d.putConfig(key[0], value)
	}

	switch key[0] {
	case tipbotconst.AccountPrefix:
		acc, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return fmt.Errorf("balance key %x: %w", key, err)
		}

		b := bigint.FromBytes(value)
		if b.Sign() <= 0 {
			return fmt.Errorf("account %s: stored balance must be positive, got %s", acc.StringLE(), b)
		}

		d.l.Balances[acc] = b
	case tipbotconst.HandlePrefix:
		acc, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return fmt.Errorf("handle %q: account: %w", key[1:], err)
		}

		d.l.Handles[string(key[1:])] = acc
	case tipbotconst.LinkPrefix:
		acc, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return fmt.Errorf("link key %x: %w", key, err)
		}

		d.l.Links[acc] = string(value)
	default:
		return fmt.Errorf("unexpected storage key %x", key)
	}

	return nil
}

func (d *StorageDecoder) putConfig(key byte, value []byte) error {
	switch key {
	case tipbotconst.OwnerKey:
		owner, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return fmt.Errorf("owner: %w", err)
		}

		d.l.Owner = owner
	case tipbotconst.PausedKey:
		d.l.Paused = true
	case tipbotconst.TipFeeKey:
		d.l.TipFee = bigint.FromBytes(value)
	case tipbotconst.BalanceLimitKey:
		d.l.BalanceLimit = bigint.FromBytes(value)
	case tipbotconst.TotalKey:
		d.l.Total = bigint.FromBytes(value)
	case tipbotconst.LockKey:
		d.Locked = true
	default:
		return fmt.Errorf("unexpected storage key %x", key)
	}

	return nil
}
