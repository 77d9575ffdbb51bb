package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/tipbot-contract/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var watchCMD = cli.Command{
	Name:  "watch",
	Usage: "Audit the ledger periodically and export results as Prometheus metrics",
	Flags: []cli.Flag{
		cli.DurationFlag{
			Name:  "interval",
			Usage: "Audit interval (config value if omitted)",
		},
		cli.StringFlag{
			Name:  "listen",
			Usage: "Metrics HTTP server address (config value if omitted)",
		},
	},
	Action: watchAction,
}

// watcher keeps the replayed ledger between audits so that every round
// replays only new blocks.
type watcher struct {
	log      *zap.Logger
	b        *remoteBlockchain
	contract util.Uint160
	metrics  *auditMetrics

	replayed *reconcile.Ledger
	from     uint32
	next     uint32
}

func watchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if v := c.Duration("interval"); v > 0 {
		cfg.Watch.Interval = v
	}
	if v := c.String("listen"); v != "" {
		cfg.Watch.Listen = v
	}

	log, err := newLogger(cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	contract, err := cfg.contractHash()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := newRemoteBlockchain(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}
	defer b.close()

	reg := prometheus.NewRegistry()

	w := &watcher{
		log:      log,
		b:        b,
		contract: contract,
		metrics:  newAuditMetrics(reg),
		replayed: reconcile.NewLedger(),
		from:     cfg.Replay.From,
		next:     cfg.Replay.From,
	}

	srv := &http.Server{
		Addr:              cfg.Watch.Listen,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
			cancel()
		}
	}()

	log.Info("watching ledger",
		zap.Stringer("contract", contract),
		zap.Duration("interval", cfg.Watch.Interval),
		zap.String("metrics", cfg.Watch.Listen),
	)

	w.run(ctx, cfg.Watch.Interval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

func (w *watcher) run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		w.round(ctx)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (w *watcher) round(ctx context.Context) {
	rep, err := w.audit(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("ledger audit failed", zap.Error(err))
			w.metrics.observeError()
		}
		return
	}

	w.metrics.observe(rep)

	if !rep.OK() {
		w.log.Warn("ledger audit found problems",
			zap.Stringer("report", rep.ID),
			zap.Uint32("height", rep.Height),
			zap.Strings("problems", rep.Problems),
		)
		return
	}

	w.log.Debug("ledger audit passed",
		zap.Stringer("report", rep.ID),
		zap.Uint32("height", rep.Height),
	)
}

func (w *watcher) audit(ctx context.Context) (*reconcile.Report, error) {
	err := w.b.refresh()
	if err != nil {
		return nil, err
	}

	height := w.b.auditHeight()

	if w.next <= height {
		err = replayLogs(ctx, w.b, w.contract, w.replayed, w.next, height)
		if err != nil {
			// partially applied blocks can't be rolled back
			w.replayed = reconcile.NewLedger()
			w.next = w.from
			return nil, err
		}

		w.next = height + 1
	}

	return auditAt(w.b, w.contract, height, w.replayed, nil)
}
