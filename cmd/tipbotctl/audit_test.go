package main

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
	"github.com/nspcc-dev/tipbot-contract/reconcile"
	"github.com/nspcc-dev/tipbot-contract/reconcile/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	testContract = util.Uint160{0xaa}
	testOwner    = util.Uint160{0x01}
	testAlice    = util.Uint160{0x02}
	testBob      = util.Uint160{0x03}
)

type storageItem struct{ k, v []byte }

func accountItem(acc util.Uint160, balance int64) storageItem {
	return storageItem{
		k: append([]byte{tipbotconst.AccountPrefix}, acc.BytesBE()...),
		v: bigint.ToBytes(big.NewInt(balance)),
	}
}

func linkItems(acc util.Uint160, handle string) []storageItem {
	return []storageItem{
		{k: append([]byte{tipbotconst.HandlePrefix}, handle...), v: acc.BytesBE()},
		{k: append([]byte{tipbotconst.LinkPrefix}, acc.BytesBE()...), v: []byte(handle)},
	}
}

func testStorage(total int64) []storageItem {
	items := []storageItem{
		{k: []byte{tipbotconst.OwnerKey}, v: testOwner.BytesBE()},
		{k: []byte{tipbotconst.TotalKey}, v: bigint.ToBytes(big.NewInt(total))},
		accountItem(testAlice, 70),
		accountItem(testBob, 30),
	}
	return append(items, linkItems(testBob, "bob")...)
}

func writeSnapshot(t *testing.T, dir string, id snapshot.ID, items []storageItem) {
	w, err := snapshot.NewWriter(dir, id, state.Contract{
		ContractBase: state.ContractBase{
			Hash:     testContract,
			Manifest: *manifest.DefaultManifest("Tipbot"),
		},
	})
	require.NoError(t, err)
	defer w.Close()

	for i := range items {
		require.NoError(t, w.Write(items[i].k, items[i].v))
	}

	require.NoError(t, w.Flush())
}

func TestAuditSnapshot(t *testing.T) {
	dir := t.TempDir()

	writeSnapshot(t, dir, snapshot.ID{Label: "testnet", Block: 10}, testStorage(100))
	writeSnapshot(t, dir, snapshot.ID{Label: "testnet", Block: 20}, testStorage(99))
	writeSnapshot(t, dir, snapshot.ID{Label: "mainnet", Block: 30}, testStorage(100))

	cfg := defaultConfig()
	cfg.Snapshot.Dir = dir
	cfg.Snapshot.Label = "testnet"

	t.Run("explicit height", func(t *testing.T) {
		rep, err := auditSnapshot(cfg, 10)
		require.NoError(t, err)
		require.True(t, rep.OK(), rep.Problems)
		require.Equal(t, testContract, rep.Contract)
		require.EqualValues(t, 10, rep.Height)
		require.EqualValues(t, 100, rep.Total.Int64())
		require.Equal(t, 2, rep.Accounts)
		require.Equal(t, 1, rep.Links)
		require.Nil(t, rep.Custody)
	})

	t.Run("latest", func(t *testing.T) {
		rep, err := auditSnapshot(cfg, 0)
		require.NoError(t, err)
		require.EqualValues(t, 20, rep.Height)
		require.False(t, rep.OK())
		require.Len(t, rep.Problems, 1)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := auditSnapshot(cfg, 15)
		require.Error(t, err)

		c := *cfg
		c.Snapshot.Label = "devnet"
		_, err = auditSnapshot(&c, 0)
		require.Error(t, err)

		c.Snapshot.Label = ""
		_, err = auditSnapshot(&c, 0)
		require.Error(t, err)
	})
}

func TestPrintReport(t *testing.T) {
	d := reconcile.NewStorageDecoder()
	for _, it := range testStorage(100) {
		require.NoError(t, d.Put(it.k, it.v))
	}

	rep := reconcile.Audit(reconcile.Prm{
		Contract: testContract,
		Height:   42,
		Stored:   d,
		Custody:  big.NewInt(90),
	})
	require.False(t, rep.OK())

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, rep))

	var v reportView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
	require.Equal(t, rep.ID.String(), v.ID)
	require.Equal(t, address.Uint160ToString(testContract), v.Contract)
	require.EqualValues(t, 42, v.Height)
	require.False(t, v.OK)
	require.Equal(t, "100", v.Total)
	require.Equal(t, "100", v.Sum)
	require.Equal(t, "90", v.Custody)
	require.Equal(t, 2, v.Accounts)
	require.Equal(t, 1, v.Links)
	require.Equal(t, rep.Problems, v.Problems)
}

func TestAuditMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newAuditMetrics(reg)

	m.observe(&reconcile.Report{
		Height:   7,
		Total:    big.NewInt(100),
		Sum:      big.NewInt(100),
		Custody:  big.NewInt(100),
		Accounts: 2,
		Links:    1,
	})

	require.EqualValues(t, 7, testutil.ToFloat64(m.height))
	require.EqualValues(t, 100, testutil.ToFloat64(m.total))
	require.EqualValues(t, 100, testutil.ToFloat64(m.custody))
	require.EqualValues(t, 2, testutil.ToFloat64(m.accounts))
	require.EqualValues(t, 1, testutil.ToFloat64(m.links))
	require.EqualValues(t, 0, testutil.ToFloat64(m.problems))
	require.EqualValues(t, 1, testutil.ToFloat64(m.audits.WithLabelValues("ok")))

	m.observe(&reconcile.Report{
		Height:   8,
		Total:    big.NewInt(100),
		Sum:      big.NewInt(99),
		Problems: []string{"ledger total 100 differs from sum of balances 99"},
	})
	m.observeError()

	require.EqualValues(t, 8, testutil.ToFloat64(m.height))
	require.EqualValues(t, 0, testutil.ToFloat64(m.custody))
	require.EqualValues(t, 1, testutil.ToFloat64(m.problems))
	require.EqualValues(t, 1, testutil.ToFloat64(m.audits.WithLabelValues("failed")))
	require.EqualValues(t, 1, testutil.ToFloat64(m.audits.WithLabelValues("error")))

	require.Panics(t, func() { newAuditMetrics(reg) })
}
