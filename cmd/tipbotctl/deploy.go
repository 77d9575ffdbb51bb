package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/tipbot-contract/contracts"
	"github.com/nspcc-dev/tipbot-contract/deploy"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var deployCMD = cli.Command{
	Name:  "deploy",
	Usage: "Deploy the ledger contract or update it to the newer version",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "contract-dir",
			Usage: "Directory with compiled contract.nef and manifest.json",
			Value: "contracts/tipbot",
		},
		cli.StringFlag{
			Name:  "owner",
			Usage: "Initial ledger owner (wallet account if omitted)",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "Wallet account password",
			EnvVar: "TIPBOT_WALLET_PASSWORD",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deployment timeout",
			Value: 2 * time.Minute,
		},
	},
	Action: deployAction,
}

func deployAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if v := c.String("password"); v != "" {
		cfg.Wallet.Password = v
	}

	log, err := newLogger(cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	prm := deploy.Prm{Logger: log}

	ctr, err := contracts.ReadDir(c.String("contract-dir"))
	if err != nil {
		return fmt.Errorf("read compiled contract: %w", err)
	}

	prm.NEF, prm.Manifest = ctr.NEF, ctr.Manifest

	prm.LocalAccount, err = openAccount(cfg)
	if err != nil {
		return err
	}

	if v := c.String("owner"); v != "" {
		prm.Owner, err = parseHash160(v)
		if err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	b, err := newRemoteBlockchain(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}
	defer b.close()

	prm.Blockchain = b.rpc

	res, err := deploy.Deploy(ctx, prm)
	if err != nil {
		return err
	}

	log.Info("ledger contract is ready",
		zap.String("address", address.Uint160ToString(res.Hash)),
		zap.Stringer("hash", res.Hash),
		zap.Bool("updated", res.Updated),
	)

	return nil
}

// openAccount opens the configured wallet and decrypts the account. The first
// wallet account is used if the address is not configured.
func openAccount(cfg *config) (*wallet.Account, error) {
	if cfg.Wallet.Path == "" {
		return nil, errors.New("missing wallet path")
	}

	w, err := wallet.NewWalletFromFile(cfg.Wallet.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	var acc *wallet.Account

	if cfg.Wallet.Address != "" {
		h, err := parseHash160(cfg.Wallet.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet address: %w", err)
		}

		acc = w.GetAccount(h)
		if acc == nil {
			return nil, fmt.Errorf("account %s is missing in the wallet", cfg.Wallet.Address)
		}
	} else {
		if len(w.Accounts) == 0 {
			return nil, errors.New("wallet has no accounts")
		}
		acc = w.Accounts[0]
	}

	err = acc.Decrypt(cfg.Wallet.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}
