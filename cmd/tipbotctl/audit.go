package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/tipbot-contract/reconcile"
	"github.com/nspcc-dev/tipbot-contract/reconcile/snapshot"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const auditFailedCode = 2

var auditCMD = cli.Command{
	Name:  "audit",
	Usage: "Check ledger total, custody, links and event log against contract storage",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "replay",
			Usage: "Rebuild the ledger from notifications and compare it with the storage",
		},
		cli.BoolFlag{
			Name:  "save",
			Usage: "Save the contract storage snapshot into the snapshot directory",
		},
		cli.BoolFlag{
			Name:  "offline",
			Usage: "Audit saved snapshot instead of the remote blockchain",
		},
		cli.UintFlag{
			Name:  "height",
			Usage: "Block height of the saved snapshot to audit (latest if omitted)",
		},
	},
	Action: auditAction,
}

func auditAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var rep *reconcile.Report

	if c.Bool("offline") {
		rep, err = auditSnapshot(cfg, uint32(c.Uint("height")))
	} else {
		rep, err = auditRemote(context.Background(), log, cfg, c.Bool("replay"), c.Bool("save"))
	}
	if err != nil {
		return err
	}

	err = printReport(os.Stdout, rep)
	if err != nil {
		return err
	}

	if !rep.OK() {
		return cli.NewExitError("ledger audit failed", auditFailedCode)
	}

	return nil
}

func auditRemote(ctx context.Context, log *zap.Logger, cfg *config, replay, save bool) (*reconcile.Report, error) {
	contract, err := cfg.contractHash()
	if err != nil {
		return nil, err
	}

	b, err := newRemoteBlockchain(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init remote blockchain: %w", err)
	}
	defer b.close()

	var replayed *reconcile.Ledger
	height := b.auditHeight()

	if replay {
		replayed = reconcile.NewLedger()

		log.Info("replaying ledger notifications",
			zap.Uint32("from", cfg.Replay.From), zap.Uint32("to", height))

		err = replayLogs(ctx, b, contract, replayed, cfg.Replay.From, height)
		if err != nil {
			return nil, err
		}
	}

	var w *snapshot.Writer
	if save {
		w, err = newSnapshotWriter(b, cfg, contract, height)
		if err != nil {
			return nil, err
		}
		defer w.Close()
	}

	rep, err := auditAt(b, contract, height, replayed, w)
	if err != nil {
		return nil, err
	}

	if w != nil {
		err = w.Flush()
		if err != nil {
			return nil, fmt.Errorf("flush snapshot: %w", err)
		}

		log.Info("snapshot saved", zap.String("dir", cfg.Snapshot.Dir), zap.Uint32("height", height))
	}

	return rep, nil
}

// auditAt audits the ledger state at the given height. Storage items are also
// passed to w if it is set.
func auditAt(b *remoteBlockchain, contract util.Uint160, height uint32, replayed *reconcile.Ledger, w *snapshot.Writer) (*reconcile.Report, error) {
	d := reconcile.NewStorageDecoder()

	err := b.iterateContractStorage(height, contract, func(key, value []byte) error {
		if w != nil {
			err := w.Write(key, value)
			if err != nil {
				return err
			}
		}
		return d.Put(key, value)
	})
	if err != nil {
		return nil, fmt.Errorf("iterate contract storage: %w", err)
	}

	custody, err := b.custody(height, contract)
	if err != nil {
		return nil, err
	}

	return reconcile.Audit(reconcile.Prm{
		Contract: contract,
		Height:   height,
		Stored:   d,
		Replayed: replayed,
		Custody:  custody,
	}), nil
}

func replayLogs(ctx context.Context, b *remoteBlockchain, contract util.Uint160, l *reconcile.Ledger, from, to uint32) error {
	err := b.iterateApplicationLogs(ctx, from, to, func(log *result.ApplicationLog) error {
		return l.ApplyLog(contract, log)
	})
	if err != nil {
		return fmt.Errorf("replay notifications: %w", err)
	}
	return nil
}

func newSnapshotWriter(b *remoteBlockchain, cfg *config, contract util.Uint160, height uint32) (*snapshot.Writer, error) {
	if cfg.Snapshot.Label == "" {
		return nil, errors.New("missing snapshot label")
	}

	st, err := b.contractState(contract)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(cfg.Snapshot.Dir, 0700)
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	w, err := snapshot.NewWriter(cfg.Snapshot.Dir, snapshot.ID{Label: cfg.Snapshot.Label, Block: height}, st)
	if err != nil {
		return nil, fmt.Errorf("init snapshot writer: %w", err)
	}

	return w, nil
}

// auditSnapshot audits saved snapshot. Zero height selects the latest
// snapshot with the configured label.
func auditSnapshot(cfg *config, height uint32) (*reconcile.Report, error) {
	id, err := selectSnapshot(cfg.Snapshot.Dir, cfg.Snapshot.Label, height)
	if err != nil {
		return nil, err
	}

	s, err := snapshot.Read(cfg.Snapshot.Dir, id)
	if err != nil {
		return nil, err
	}

	d := reconcile.NewStorageDecoder()

	err = s.IterateStorage(d.Put)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot storage: %w", err)
	}

	return reconcile.Audit(reconcile.Prm{
		Contract: s.State.Hash,
		Height:   id.Block,
		Stored:   d,
	}), nil
}

func selectSnapshot(dir, label string, height uint32) (snapshot.ID, error) {
	if label == "" {
		return snapshot.ID{}, errors.New("missing snapshot label")
	}

	if height != 0 {
		return snapshot.ID{Label: label, Block: height}, nil
	}

	ids, err := snapshot.List(dir)
	if err != nil {
		return snapshot.ID{}, err
	}

	var (
		res   snapshot.ID
		found bool
	)

	for i := range ids {
		if ids[i].Label == label {
			res, found = ids[i], true
		}
	}

	if !found {
		return snapshot.ID{}, fmt.Errorf("no '%s' snapshots in '%s'", label, dir)
	}

	return res, nil
}

// reportView is a human-readable form of reconcile.Report.
type reportView struct {
	ID       string   `yaml:"id"`
	Time     string   `yaml:"time"`
	Contract string   `yaml:"contract"`
	Height   uint32   `yaml:"height"`
	OK       bool     `yaml:"ok"`
	Total    string   `yaml:"total"`
	Sum      string   `yaml:"sum"`
	Custody  string   `yaml:"custody,omitempty"`
	Accounts int      `yaml:"accounts"`
	Links    int      `yaml:"links"`
	Events   int      `yaml:"events,omitempty"`
	Problems []string `yaml:"problems,omitempty"`
}

func newReportView(r *reconcile.Report) reportView {
	return reportView{
		ID:       r.ID.String(),
		Time:     r.Time.UTC().Format(time.RFC3339),
		Contract: address.Uint160ToString(r.Contract),
		Height:   r.Height,
		OK:       r.OK(),
		Total:    bigString(r.Total),
		Sum:      bigString(r.Sum),
		Custody:  bigString(r.Custody),
		Accounts: r.Accounts,
		Links:    r.Links,
		Events:   r.Events,
		Problems: r.Problems,
	}
}

func printReport(w io.Writer, r *reconcile.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(newReportView(r))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return enc.Close()
}

func bigString(x *big.Int) string {
	if x == nil {
		return ""
	}
	return x.String()
}
