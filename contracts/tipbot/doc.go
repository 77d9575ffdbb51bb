/*
Package tipbot implements Tipbot contract, a custodial GAS ledger for chat
tipping.

Users deposit GAS by transferring it to the contract, link their account to
a chat handle and tip other users by handle. A handle passed as transfer
data links the sender to it within the same deposit, and UnlinkAndWithdraw
drops the link and pays out the whole balance at once. Tips only move ledger balances,
GAS leaves the contract on withdrawal only. Sum of all ledger balances always
equals GAS balance of the contract.

The contract owner can pause deposits, withdrawals and tips, set a tip fee
and limit the balance of a single account. Contract code can be updated by
the committee only.

# Contract notifications

Deposited notification. This notification is produced when GAS is deposited
to the ledger account.

	Deposited:
	  - name: who
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer

Withdrawn notification. This notification is produced when GAS is withdrawn
from the ledger account.

	Withdrawn:
	  - name: who
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer

Tipped notification. This notification is produced when a tip is moved
between ledger accounts. It contains balances of both accounts after the tip.

	Tipped:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: fromBalance
	    type: Integer
	  - name: toBalance
	    type: Integer

FeeCharged notification. This notification is produced before Tipped one if
tip fee was charged.

	FeeCharged:
	  - name: from
	    type: Hash160
	  - name: collector
	    type: Hash160
	  - name: amount
	    type: Integer

LinkChanged notification. This notification is produced when a handle is
linked to (linked is true) or unlinked from (linked is false) the account.

	LinkChanged:
	  - name: who
	    type: Hash160
	  - name: handle
	    type: String
	  - name: linked
	    type: Boolean

OwnerChanged notification. It is also produced on contract deployment with
null previous owner.

	OwnerChanged:
	  - name: previous
	    type: Hash160
	  - name: owner
	    type: Hash160

PauseChanged notification.

	PauseChanged:
	  - name: paused
	    type: Boolean

ConfigChanged notification. Key is either TipFee or BalanceLimit.

	ConfigChanged:
	  - name: key
	    type: String
	  - name: value
	    type: Integer
*/
package tipbot

/*
Contract storage model.

# Summary
Key-value storage format:
  - 'o' -> interop.Hash160
    contract owner
  - 'p' -> []byte{1}
    present only when the contract is paused
  - 'f' -> int
    tip fee, absent when zero
  - 'l' -> int
    balance limit, absent when default
  - 't' -> int
    sum of all balances
  - 'r' -> []byte{1}
    present only while a mutating method is executed
  - 'a' + interop.Hash160 -> int
    ledger balance of the account, absent when zero
  - 'h' + handle -> interop.Hash160
    account linked to the handle
  - 'n' + interop.Hash160 -> string
    handle linked to the account

# Links
Handle and account records are always written and removed together, so
each handle has at most one account and each account has at most one
handle.
*/
