package tests

import (
	"encoding/json"
	"math/big"
	"path"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/tipbot-contract/common"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
	"github.com/stretchr/testify/require"
)

const tipbotPath = "../contracts/tipbot"

type tipbotEnv struct {
	e     *neotest.Executor
	c     *neotest.ContractInvoker
	owner neotest.Signer
	gas   util.Uint160
}

func deployTipbotContract(t *testing.T, e *neotest.Executor, data any) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, tipbotPath, path.Join(tipbotPath, "config.yml"))
	e.DeployContract(t, c, data)
	return c.Hash
}

func newTipbotEnv(t *testing.T) *tipbotEnv {
	e := newExecutor(t)
	owner := e.NewAccount(t)

	h := deployTipbotContract(t, e, []any{owner.ScriptHash()})

	gasHash, err := e.Chain.GetNativeContractScriptHash(nativenames.Gas)
	require.NoError(t, err)

	return &tipbotEnv{
		e:     e,
		c:     e.CommitteeInvoker(h),
		owner: owner,
		gas:   gasHash,
	}
}

// as returns ledger invoker signed by acc.
func (env *tipbotEnv) as(acc neotest.Signer) *neotest.ContractInvoker {
	return env.c.WithSigners(acc)
}

func (env *tipbotEnv) deposit(t *testing.T, acc neotest.Signer, amount int64) util.Uint256 {
	return env.e.NewInvoker(env.gas, acc).Invoke(t, true, "transfer",
		acc.ScriptHash(), env.c.Hash, amount, nil)
}

func (env *tipbotEnv) checkBalance(t *testing.T, acc util.Uint160, expected int64) {
	env.c.Invoke(t, expected, "balanceOf", acc)
}

func (env *tipbotEnv) checkHandle(t *testing.T, acc util.Uint160, expected string) {
	s, err := env.c.TestInvoke(t, "handleOf", acc)
	require.NoError(t, err)

	b, err := s.Pop().Item().TryBytes()
	require.NoError(t, err)
	require.Equal(t, expected, string(b))
}

// checkHash checks the script hash returned by the method. Stored hashes
// are returned as Buffer, so the value is compared by bytes.
func checkHash(t *testing.T, c *neotest.ContractInvoker, expected util.Uint160, method string, args ...any) {
	s, err := c.TestInvoke(t, method, args...)
	require.NoError(t, err)

	b, err := s.Pop().Item().TryBytes()
	require.NoError(t, err)
	require.Equal(t, expected.BytesBE(), b)
}

// checkCustody checks that ledger total equals GAS held by the contract.
func (env *tipbotEnv) checkCustody(t *testing.T, expected int64) {
	env.c.Invoke(t, expected, "totalBalance")
	require.Equal(t, expected, env.e.Chain.GetUtilityTokenBalance(env.c.Hash).Int64())
}

// ledgerEvents returns notifications of the ledger contract produced by
// the transaction.
func (env *tipbotEnv) ledgerEvents(t *testing.T, h util.Uint256) []state.NotificationEvent {
	aer := env.c.CheckHalt(t, h)

	var res []state.NotificationEvent
	for _, ev := range aer.Events {
		if ev.ScriptHash.Equals(env.c.Hash) {
			res = append(res, ev)
		}
	}
	return res
}

func requireEvent(t *testing.T, ev state.NotificationEvent, name string, args ...any) {
	require.Equal(t, name, ev.Name)

	items := ev.Item.Value().([]stackitem.Item)
	require.Len(t, items, len(args))

	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			require.Equal(t, stackitem.AnyT, items[i].Type(), "argument %d of %s", i, name)
		case util.Uint160:
			b, err := items[i].TryBytes()
			require.NoError(t, err)
			require.Equal(t, v.BytesBE(), b, "argument %d of %s", i, name)
		case int64:
			n, err := items[i].TryInteger()
			require.NoError(t, err)
			require.Equal(t, big.NewInt(v), n, "argument %d of %s", i, name)
		case string:
			b, err := items[i].TryBytes()
			require.NoError(t, err)
			require.Equal(t, v, string(b), "argument %d of %s", i, name)
		case bool:
			b, err := items[i].TryBool()
			require.NoError(t, err)
			require.Equal(t, v, b, "argument %d of %s", i, name)
		default:
			t.Fatalf("unexpected argument type %T", arg)
		}
	}
}

func TestTipbot_Deploy(t *testing.T) {
	t.Run("owner from data", func(t *testing.T) {
		env := newTipbotEnv(t)

		checkHash(t, env.c, env.owner.ScriptHash(), "owner")
		env.c.Invoke(t, false, "isPaused")
		env.c.Invoke(t, 0, "tipFee")
		env.c.Invoke(t, 0, "totalBalance")
		env.c.Invoke(t, common.Version, "version")

		limit, ok := new(big.Int).SetString(tipbotconst.MaxBalance, 10)
		require.True(t, ok)
		env.c.Invoke(t, limit, "balanceLimit")
	})
	t.Run("owner is sender", func(t *testing.T) {
		e := newExecutor(t)
		h := deployTipbotContract(t, e, nil)

		checkHash(t, e.CommitteeInvoker(h), e.CommitteeHash, "owner")
	})
	t.Run("initial owner event", func(t *testing.T) {
		e := newExecutor(t)
		owner := e.NewAccount(t)

		c := neotest.CompileFile(t, e.CommitteeHash, tipbotPath, path.Join(tipbotPath, "config.yml"))
		h := e.DeployContract(t, c, []any{owner.ScriptHash()})

		var evs []state.NotificationEvent
		for _, ev := range e.CheckHalt(t, h).Events {
			if ev.ScriptHash.Equals(c.Hash) {
				evs = append(evs, ev)
			}
		}

		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.OwnerChangedEvent, nil, owner.ScriptHash())
	})
	t.Run("zero owner", func(t *testing.T) {
		e := newExecutor(t)
		c := neotest.CompileFile(t, e.CommitteeHash, tipbotPath, path.Join(tipbotPath, "config.yml"))
		e.DeployContractCheckFAULT(t, c, []any{util.Uint160{}}, tipbotconst.ErrInvalidOwner)
	})
}

func TestTipbot_Scenario(t *testing.T) {
	env := newTipbotEnv(t)

	alice := env.e.NewAccount(t)
	bob := env.e.NewAccount(t)
	cAlice := env.as(alice)
	cBob := env.as(bob)

	h := env.deposit(t, alice, 1000)
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.DepositedEvent, alice.ScriptHash(), int64(1000), int64(1000))
	env.checkBalance(t, alice.ScriptHash(), 1000)

	h = cAlice.Invoke(t, stackitem.Null{}, "link", alice.ScriptHash(), "alice")
	evs = env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.LinkChangedEvent, alice.ScriptHash(), "alice", true)
	checkHash(t, env.c, alice.ScriptHash(), "resolve", "alice")

	env.e.NewInvoker(env.gas, bob).InvokeFail(t, tipbotconst.ErrZeroAmount, "transfer",
		bob.ScriptHash(), env.c.Hash, 0, nil)
	env.checkBalance(t, bob.ScriptHash(), 0)

	cBob.Invoke(t, stackitem.Null{}, "link", bob.ScriptHash(), "bob")
	checkHash(t, env.c, bob.ScriptHash(), "resolve", "bob")
	env.checkHandle(t, bob.ScriptHash(), "bob")
	env.checkCustody(t, 1000)

	h = cAlice.Invoke(t, stackitem.Null{}, "tip", alice.ScriptHash(), "bob", 300)
	evs = env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.TippedEvent,
		alice.ScriptHash(), bob.ScriptHash(), int64(300), int64(700), int64(300))
	env.checkBalance(t, alice.ScriptHash(), 700)
	env.checkBalance(t, bob.ScriptHash(), 300)
	env.c.Invoke(t, 300, "balanceOfHandle", "bob")
	env.checkCustody(t, 1000)

	h = cBob.Invoke(t, stackitem.Null{}, "withdraw", bob.ScriptHash(), 300)
	evs = env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.WithdrawnEvent, bob.ScriptHash(), int64(300), int64(0))
	env.checkBalance(t, bob.ScriptHash(), 0)
	env.checkBalance(t, alice.ScriptHash(), 700)
	env.checkCustody(t, 700)

	// Withdrawal is paid by bob, so check GAS transfer by the notification.
	aer := env.c.CheckHalt(t, h)
	var transferred bool
	for _, ev := range aer.Events {
		if ev.ScriptHash.Equals(env.gas) && ev.Name == "Transfer" {
			items := ev.Item.Value().([]stackitem.Item)
			from, err := items[0].TryBytes()
			require.NoError(t, err)
			to, err := items[1].TryBytes()
			require.NoError(t, err)
			amount, err := items[2].TryInteger()
			require.NoError(t, err)
			require.Equal(t, env.c.Hash.BytesBE(), from)
			require.Equal(t, bob.ScriptHash().BytesBE(), to)
			require.Equal(t, big.NewInt(300), amount)
			transferred = true
		}
	}
	require.True(t, transferred)
}

func TestTipbot_Pause(t *testing.T) {
	env := newTipbotEnv(t)

	acc := env.e.NewAccount(t)
	cAcc := env.as(acc)
	cOwner := env.as(env.owner)

	env.deposit(t, acc, 50)
	cAcc.Invoke(t, stackitem.Null{}, "link", acc.ScriptHash(), "acc")

	cAcc.InvokeFail(t, tipbotconst.ErrUnauthorized, "setPaused", true)

	h := cOwner.Invoke(t, stackitem.Null{}, "setPaused", true)
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.PauseChangedEvent, true)
	env.c.Invoke(t, true, "isPaused")

	other := env.e.NewAccount(t)
	env.e.NewInvoker(env.gas, acc).InvokeFail(t, tipbotconst.ErrContractPaused, "transfer",
		acc.ScriptHash(), env.c.Hash, 10, nil)
	cAcc.InvokeFail(t, tipbotconst.ErrContractPaused, "withdraw", acc.ScriptHash(), 10)
	env.as(other).InvokeFail(t, tipbotconst.ErrContractPaused, "tip", other.ScriptHash(), "acc", 10)

	// Linking and reads are not gated.
	env.as(other).Invoke(t, stackitem.Null{}, "link", other.ScriptHash(), "other")
	env.checkBalance(t, acc.ScriptHash(), 50)

	cOwner.Invoke(t, stackitem.Null{}, "setPaused", false)
	env.c.Invoke(t, false, "isPaused")
	cAcc.Invoke(t, stackitem.Null{}, "withdraw", acc.ScriptHash(), 10)
	env.checkCustody(t, 40)
}

func TestTipbot_Deposit(t *testing.T) {
	env := newTipbotEnv(t)

	acc := env.e.NewAccount(t)
	gasAcc := env.e.NewInvoker(env.gas, acc)

	t.Run("zero amount", func(t *testing.T) {
		gasAcc.InvokeFail(t, tipbotconst.ErrZeroAmount, "transfer",
			acc.ScriptHash(), env.c.Hash, 0, nil)
	})
	t.Run("on behalf of another account", func(t *testing.T) {
		other := env.e.NewAccount(t)

		h := gasAcc.Invoke(t, true, "transfer", acc.ScriptHash(), env.c.Hash, 25, other.ScriptHash())
		evs := env.ledgerEvents(t, h)
		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.DepositedEvent, other.ScriptHash(), int64(25), int64(25))

		env.checkBalance(t, other.ScriptHash(), 25)
		env.checkBalance(t, acc.ScriptHash(), 0)
	})
	t.Run("invalid data", func(t *testing.T) {
		gasAcc.InvokeFail(t, tipbotconst.ErrInvalidAccount, "transfer",
			acc.ScriptHash(), env.c.Hash, 10, "Not a handle")
		gasAcc.InvokeFail(t, tipbotconst.ErrInvalidAccount, "transfer",
			acc.ScriptHash(), env.c.Hash, 10, env.c.Hash)
	})
	t.Run("not GAS", func(t *testing.T) {
		neoHash, err := env.e.Chain.GetNativeContractScriptHash(nativenames.Neo)
		require.NoError(t, err)

		neoValidator := env.e.CommitteeInvoker(neoHash).WithSigners(env.e.Validator)
		neoValidator.InvokeFail(t, tipbotconst.ErrUnsupportedToken, "transfer",
			env.e.Validator.ScriptHash(), env.c.Hash, 1, nil)
	})
	t.Run("direct call", func(t *testing.T) {
		env.as(acc).InvokeFail(t, tipbotconst.ErrUnsupportedToken, "onNEP17Payment",
			acc.ScriptHash(), 10, nil)
	})

	env.checkCustody(t, 25)
}

func TestTipbot_Withdraw(t *testing.T) {
	env := newTipbotEnv(t)

	acc := env.e.NewAccount(t)
	cAcc := env.as(acc)
	env.deposit(t, acc, 100)

	t.Run("zero", func(t *testing.T) {
		// Rejected every time with no state change.
		cAcc.InvokeFail(t, tipbotconst.ErrZeroAmount, "withdraw", acc.ScriptHash(), 0)
		cAcc.InvokeFail(t, tipbotconst.ErrZeroAmount, "withdraw", acc.ScriptHash(), 0)
		env.checkBalance(t, acc.ScriptHash(), 100)
	})
	t.Run("negative", func(t *testing.T) {
		cAcc.InvokeFail(t, tipbotconst.ErrNegativeAmount, "withdraw", acc.ScriptHash(), -1)
	})
	t.Run("insufficient funds", func(t *testing.T) {
		cAcc.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "withdraw", acc.ScriptHash(), 101)
		env.checkBalance(t, acc.ScriptHash(), 100)
	})
	t.Run("not witnessed", func(t *testing.T) {
		other := env.e.NewAccount(t)
		env.as(other).InvokeFail(t, tipbotconst.ErrWitnessFailed, "withdraw", acc.ScriptHash(), 10)
	})
	t.Run("invalid account", func(t *testing.T) {
		cAcc.InvokeFail(t, tipbotconst.ErrInvalidAccount, "withdraw", []byte{1, 2, 3}, 10)
	})
	t.Run("everything", func(t *testing.T) {
		cAcc.Invoke(t, stackitem.Null{}, "withdraw", acc.ScriptHash(), 100)
		env.checkBalance(t, acc.ScriptHash(), 0)
		env.checkCustody(t, 0)

		cAcc.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "withdraw", acc.ScriptHash(), 1)
	})
}

func TestTipbot_Link(t *testing.T) {
	env := newTipbotEnv(t)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	cA := env.as(a)
	cB := env.as(b)

	t.Run("invalid handle", func(t *testing.T) {
		for _, handle := range []string{"", "Alice", "al ice", "@alice", "алиса",
			"a123456789012345678901234567890123"} {
			cA.InvokeFail(t, tipbotconst.ErrInvalidHandle, "link", a.ScriptHash(), handle)
		}
	})
	t.Run("not witnessed", func(t *testing.T) {
		cB.InvokeFail(t, tipbotconst.ErrWitnessFailed, "link", a.ScriptHash(), "alice")
	})

	cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")

	t.Run("same link again", func(t *testing.T) {
		h := cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")
		require.Len(t, env.ledgerEvents(t, h), 0)
	})
	t.Run("handle taken", func(t *testing.T) {
		cB.InvokeFail(t, tipbotconst.ErrHandleAlreadyLinked, "link", b.ScriptHash(), "alice")
	})
	t.Run("account linked", func(t *testing.T) {
		cA.InvokeFail(t, tipbotconst.ErrCallerAlreadyLinked, "link", a.ScriptHash(), "alice2")
	})
	t.Run("unlink", func(t *testing.T) {
		cB.InvokeFail(t, tipbotconst.ErrNotLinked, "unlink", b.ScriptHash())
		cB.InvokeFail(t, tipbotconst.ErrWitnessFailed, "unlink", a.ScriptHash())

		h := cA.Invoke(t, stackitem.Null{}, "unlink", a.ScriptHash())
		evs := env.ledgerEvents(t, h)
		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.LinkChangedEvent, a.ScriptHash(), "alice", false)

		env.c.Invoke(t, stackitem.Null{}, "resolve", "alice")
		env.checkHandle(t, a.ScriptHash(), "")

		// Handle is free now.
		cB.Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "alice")
		checkHash(t, env.c, b.ScriptHash(), "resolve", "alice")

		cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice_2")
	})

	env.c.Invoke(t, stackitem.Null{}, "resolve", "unknown")
	env.c.Invoke(t, 0, "balanceOfHandle", "unknown")
	env.c.Invoke(t, 0, "balanceOf", []byte{1, 2, 3})
}

func TestTipbot_Tip(t *testing.T) {
	env := newTipbotEnv(t)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	bystander := env.e.NewAccount(t)
	cA := env.as(a)

	env.deposit(t, a, 100)
	env.deposit(t, bystander, 10)
	env.as(b).Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "bob")
	cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")

	t.Run("unknown handle", func(t *testing.T) {
		cA.InvokeFail(t, tipbotconst.ErrUnknownHandle, "tip", a.ScriptHash(), "carol", 10)
		cA.InvokeFail(t, tipbotconst.ErrUnknownHandle, "tip", a.ScriptHash(),
			"a1234567890123456789012345678901234567890123456789012345678901234567890", 10)
	})
	t.Run("self tip", func(t *testing.T) {
		cA.InvokeFail(t, tipbotconst.ErrSelfTip, "tip", a.ScriptHash(), "alice", 10)
	})
	t.Run("zero", func(t *testing.T) {
		cA.InvokeFail(t, tipbotconst.ErrZeroAmount, "tip", a.ScriptHash(), "bob", 0)
	})
	t.Run("insufficient funds", func(t *testing.T) {
		cA.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "tip", a.ScriptHash(), "bob", 101)
	})
	t.Run("not witnessed", func(t *testing.T) {
		env.as(b).InvokeFail(t, tipbotconst.ErrWitnessFailed, "tip", a.ScriptHash(), "bob", 10)
	})

	cA.Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "bob", 100)

	env.checkBalance(t, a.ScriptHash(), 0)
	env.checkBalance(t, b.ScriptHash(), 100)
	env.checkBalance(t, bystander.ScriptHash(), 10)
	env.checkCustody(t, 110)
}

func TestTipbot_BalanceLimit(t *testing.T) {
	env := newTipbotEnv(t)
	cOwner := env.as(env.owner)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)

	env.deposit(t, a, 100)
	env.deposit(t, b, 100)
	env.as(b).Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "bob")

	env.as(a).InvokeFail(t, tipbotconst.ErrUnauthorized, "setBalanceLimit", 150)
	cOwner.InvokeFail(t, tipbotconst.ErrInvalidConfig, "setBalanceLimit", 0)

	h := cOwner.Invoke(t, stackitem.Null{}, "setBalanceLimit", 150)
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.ConfigChangedEvent, tipbotconst.BalanceLimitConfig, int64(150))

	// Neither leg of a failed tip is applied.
	env.as(a).InvokeFail(t, tipbotconst.ErrOverflow, "tip", a.ScriptHash(), "bob", 60)
	env.checkBalance(t, a.ScriptHash(), 100)
	env.checkBalance(t, b.ScriptHash(), 100)

	env.e.NewInvoker(env.gas, b).InvokeFail(t, tipbotconst.ErrOverflow, "transfer",
		b.ScriptHash(), env.c.Hash, 51, nil)

	env.as(a).Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "bob", 50)
	env.checkBalance(t, b.ScriptHash(), 150)
	env.checkCustody(t, 200)
}

func TestTipbot_TipFee(t *testing.T) {
	env := newTipbotEnv(t)
	cOwner := env.as(env.owner)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	cA := env.as(a)

	env.deposit(t, a, 100)
	env.as(b).Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "bob")

	cA.InvokeFail(t, tipbotconst.ErrUnauthorized, "setTipFee", 5)
	cOwner.InvokeFail(t, tipbotconst.ErrInvalidConfig, "setTipFee", -1)
	cOwner.Invoke(t, stackitem.Null{}, "setTipFee", 5)
	env.c.Invoke(t, 5, "tipFee")

	cA.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "tip", a.ScriptHash(), "bob", 96)

	h := cA.Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "bob", 10)
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 2)
	requireEvent(t, evs[0], tipbotconst.FeeChargedEvent, a.ScriptHash(), env.owner.ScriptHash(), int64(5))
	requireEvent(t, evs[1], tipbotconst.TippedEvent,
		a.ScriptHash(), b.ScriptHash(), int64(10), int64(85), int64(10))

	env.checkBalance(t, env.owner.ScriptHash(), 5)
	env.checkCustody(t, 100)

	t.Run("owner pays no fee", func(t *testing.T) {
		env.deposit(t, env.owner, 10)

		h := cOwner.Invoke(t, stackitem.Null{}, "tip", env.owner.ScriptHash(), "bob", 15)
		evs := env.ledgerEvents(t, h)
		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.TippedEvent,
			env.owner.ScriptHash(), b.ScriptHash(), int64(15), int64(0), int64(25))
	})
	t.Run("fee to the receiver", func(t *testing.T) {
		cOwner.Invoke(t, stackitem.Null{}, "link", env.owner.ScriptHash(), "owner")

		cA.Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "owner", 10)
		env.checkBalance(t, a.ScriptHash(), 70)
		env.checkBalance(t, env.owner.ScriptHash(), 15)
	})

	cOwner.Invoke(t, stackitem.Null{}, "setTipFee", 0)
	cA.Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "bob", 70)
	env.checkBalance(t, a.ScriptHash(), 0)
	env.checkCustody(t, 110)
}

func TestTipbot_SetOwner(t *testing.T) {
	env := newTipbotEnv(t)
	cOwner := env.as(env.owner)

	next := env.e.NewAccount(t)

	env.as(next).InvokeFail(t, tipbotconst.ErrUnauthorized, "setOwner", next.ScriptHash())
	cOwner.InvokeFail(t, tipbotconst.ErrInvalidOwner, "setOwner", util.Uint160{})
	cOwner.InvokeFail(t, tipbotconst.ErrInvalidOwner, "setOwner", []byte{1, 2, 3})

	h := cOwner.Invoke(t, stackitem.Null{}, "setOwner", next.ScriptHash())
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.OwnerChangedEvent, env.owner.ScriptHash(), next.ScriptHash())

	cOwner.InvokeFail(t, tipbotconst.ErrUnauthorized, "setPaused", true)
	env.as(next).Invoke(t, stackitem.Null{}, "setPaused", true)
}

func TestTipbot_Update(t *testing.T) {
	env := newTipbotEnv(t)

	c := neotest.CompileFile(t, env.e.CommitteeHash, tipbotPath, path.Join(tipbotPath, "config.yml"))
	rawManifest, err := json.Marshal(c.Manifest)
	require.NoError(t, err)
	rawNef, err := c.NEF.Bytes()
	require.NoError(t, err)

	env.as(env.owner).InvokeFail(t, "only committee can update contract", "update",
		rawNef, rawManifest, nil)

	// Current version can't be updated to itself.
	env.c.InvokeFail(t, common.ErrAlreadyUpdated, "update", rawNef, rawManifest, nil)
}

func (env *tipbotEnv) checkUnlocked(t *testing.T) {
	cs := env.e.Chain.GetContractState(env.c.Hash)
	require.NotNil(t, cs)
	require.Nil(t, env.e.Chain.GetStorageItem(cs.ID, []byte{tipbotconst.LockKey}))
}

func TestTipbot_FailureAfterLock(t *testing.T) {
	env := newTipbotEnv(t)
	cOwner := env.as(env.owner)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	cA := env.as(a)

	env.deposit(t, a, 100)
	env.deposit(t, b, 100)
	env.as(b).Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "bob")
	env.checkUnlocked(t)

	cA.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "withdraw", a.ScriptHash(), 101)
	cA.InvokeFail(t, tipbotconst.ErrUnknownHandle, "tip", a.ScriptHash(), "carol", 1)
	cA.InvokeFail(t, tipbotconst.ErrHandleAlreadyLinked, "link", a.ScriptHash(), "bob")
	cA.InvokeFail(t, tipbotconst.ErrNotLinked, "unlink", a.ScriptHash())

	cOwner.Invoke(t, stackitem.Null{}, "setBalanceLimit", 150)
	cA.InvokeFail(t, tipbotconst.ErrOverflow, "tip", a.ScriptHash(), "bob", 51)
	env.checkBalance(t, a.ScriptHash(), 100)
	env.checkBalance(t, b.ScriptHash(), 100)
	env.checkUnlocked(t)

	// Every mutating method is still callable after the failures above.
	h := cA.Invoke(t, stackitem.Null{}, "withdraw", a.ScriptHash(), 10)
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 1)
	requireEvent(t, evs[0], tipbotconst.WithdrawnEvent, a.ScriptHash(), int64(10), int64(90))

	cA.Invoke(t, stackitem.Null{}, "tip", a.ScriptHash(), "bob", 50)
	cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")
	cA.Invoke(t, stackitem.Null{}, "unlink", a.ScriptHash())
	env.deposit(t, a, 10)
	cOwner.Invoke(t, stackitem.Null{}, "setTipFee", 1)
	cOwner.Invoke(t, stackitem.Null{}, "setPaused", true)
	cOwner.Invoke(t, stackitem.Null{}, "setPaused", false)
	cOwner.Invoke(t, stackitem.Null{}, "setOwner", a.ScriptHash())

	env.checkBalance(t, a.ScriptHash(), 50)
	env.checkBalance(t, b.ScriptHash(), 150)
	env.checkCustody(t, 200)
	env.checkUnlocked(t)
}

func TestTipbot_AmountBounds(t *testing.T) {
	env := newTipbotEnv(t)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	cA := env.as(a)

	env.deposit(t, a, 100)
	env.as(b).Invoke(t, stackitem.Null{}, "link", b.ScriptHash(), "bob")

	maxBalance, ok := new(big.Int).SetString(tipbotconst.MaxBalance, 10)
	require.True(t, ok)

	aboveMax := new(big.Int).Add(maxBalance, big.NewInt(1))
	huge := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	for _, amount := range []*big.Int{aboveMax, huge} {
		cA.InvokeFail(t, tipbotconst.ErrOverflow, "tip", a.ScriptHash(), "bob", amount)
		cA.InvokeFail(t, tipbotconst.ErrOverflow, "withdraw", a.ScriptHash(), amount)
		cA.InvokeFail(t, tipbotconst.ErrOverflow, "onNEP17Payment", a.ScriptHash(), amount, nil)
	}

	cA.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "tip", a.ScriptHash(), "bob", maxBalance)
	cA.InvokeFail(t, tipbotconst.ErrInsufficientFunds, "withdraw", a.ScriptHash(), maxBalance)

	env.checkBalance(t, a.ScriptHash(), 100)
	env.checkBalance(t, b.ScriptHash(), 0)
	env.checkCustody(t, 100)
}

func TestTipbot_DepositAndLink(t *testing.T) {
	env := newTipbotEnv(t)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	gasA := env.e.NewInvoker(env.gas, a)
	gasB := env.e.NewInvoker(env.gas, b)

	h := gasA.Invoke(t, true, "transfer", a.ScriptHash(), env.c.Hash, 40, "alice")
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 2)
	requireEvent(t, evs[0], tipbotconst.LinkChangedEvent, a.ScriptHash(), "alice", true)
	requireEvent(t, evs[1], tipbotconst.DepositedEvent, a.ScriptHash(), int64(40), int64(40))

	checkHash(t, env.c, a.ScriptHash(), "resolve", "alice")
	env.checkHandle(t, a.ScriptHash(), "alice")

	t.Run("same link again", func(t *testing.T) {
		h := gasA.Invoke(t, true, "transfer", a.ScriptHash(), env.c.Hash, 10, "alice")
		evs := env.ledgerEvents(t, h)
		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.DepositedEvent, a.ScriptHash(), int64(10), int64(50))
	})
	t.Run("handle taken", func(t *testing.T) {
		gasB.InvokeFail(t, tipbotconst.ErrHandleAlreadyLinked, "transfer",
			b.ScriptHash(), env.c.Hash, 10, "alice")
		env.checkBalance(t, b.ScriptHash(), 0)
	})
	t.Run("account linked", func(t *testing.T) {
		gasA.InvokeFail(t, tipbotconst.ErrCallerAlreadyLinked, "transfer",
			a.ScriptHash(), env.c.Hash, 10, "alice2")
		env.checkBalance(t, a.ScriptHash(), 50)
	})
	t.Run("handle of hash length", func(t *testing.T) {
		handle := "abcdefghij0123456789"
		require.Len(t, handle, util.Uint160Size)

		gasB.Invoke(t, true, "transfer", b.ScriptHash(), env.c.Hash, 5, handle)
		checkHash(t, env.c, b.ScriptHash(), "resolve", handle)
		env.checkBalance(t, b.ScriptHash(), 5)
	})

	env.checkCustody(t, 55)
}

func TestTipbot_UnlinkAndWithdraw(t *testing.T) {
	env := newTipbotEnv(t)
	cOwner := env.as(env.owner)

	a := env.e.NewAccount(t)
	b := env.e.NewAccount(t)
	cA := env.as(a)
	cB := env.as(b)

	env.deposit(t, a, 40)
	env.deposit(t, b, 60)
	cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")

	cB.InvokeFail(t, tipbotconst.ErrNotLinked, "unlinkAndWithdraw", b.ScriptHash())
	cB.InvokeFail(t, tipbotconst.ErrWitnessFailed, "unlinkAndWithdraw", a.ScriptHash())

	cOwner.Invoke(t, stackitem.Null{}, "setPaused", true)
	cA.InvokeFail(t, tipbotconst.ErrContractPaused, "unlinkAndWithdraw", a.ScriptHash())
	cOwner.Invoke(t, stackitem.Null{}, "setPaused", false)

	h := cA.Invoke(t, stackitem.Null{}, "unlinkAndWithdraw", a.ScriptHash())
	evs := env.ledgerEvents(t, h)
	require.Len(t, evs, 2)
	requireEvent(t, evs[0], tipbotconst.LinkChangedEvent, a.ScriptHash(), "alice", false)
	requireEvent(t, evs[1], tipbotconst.WithdrawnEvent, a.ScriptHash(), int64(40), int64(0))

	env.c.Invoke(t, stackitem.Null{}, "resolve", "alice")
	env.checkHandle(t, a.ScriptHash(), "")
	env.checkBalance(t, a.ScriptHash(), 0)
	env.checkCustody(t, 60)

	t.Run("empty balance", func(t *testing.T) {
		cA.Invoke(t, stackitem.Null{}, "link", a.ScriptHash(), "alice")

		h := cA.Invoke(t, stackitem.Null{}, "unlinkAndWithdraw", a.ScriptHash())
		evs := env.ledgerEvents(t, h)
		require.Len(t, evs, 1)
		requireEvent(t, evs[0], tipbotconst.LinkChangedEvent, a.ScriptHash(), "alice", false)
		env.checkCustody(t, 60)
	})
}
