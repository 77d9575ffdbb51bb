package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultWatchInterval  = time.Minute
	defaultMetricsAddress = ":9120"
	defaultSnapshotDir    = "snapshots"
)

// config is the YAML configuration of tipbotctl. Global command line flags
// override the file values.
type config struct {
	RPC struct {
		Endpoint       string        `yaml:"endpoint"`
		DialTimeout    time.Duration `yaml:"dial_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"rpc"`

	// Contract is the ledger address: Neo address or LE hex string.
	Contract string `yaml:"contract"`

	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`

	Wallet struct {
		Path     string `yaml:"path"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
	} `yaml:"wallet"`

	Replay struct {
		// From is the first block to replay notifications from, usually the
		// block the ledger was deployed at.
		From uint32 `yaml:"from"`
	} `yaml:"replay"`

	Snapshot struct {
		Dir   string `yaml:"dir"`
		Label string `yaml:"label"`
	} `yaml:"snapshot"`

	Watch struct {
		Interval time.Duration `yaml:"interval"`
		Listen   string        `yaml:"listen"`
	} `yaml:"watch"`
}

func defaultConfig() *config {
	var cfg config

	cfg.RPC.DialTimeout = defaultRequestTimeout
	cfg.RPC.RequestTimeout = defaultRequestTimeout
	cfg.Logger.Level = "info"
	cfg.Snapshot.Dir = defaultSnapshotDir
	cfg.Watch.Interval = defaultWatchInterval
	cfg.Watch.Listen = defaultMetricsAddress

	return &cfg
}

// parseConfig decodes YAML data over the default configuration.
func parseConfig(data []byte) (*config, error) {
	cfg := defaultConfig()

	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode YAML config: %w", err)
	}

	return cfg, nil
}

// loadConfig reads the configuration file referenced by the global flag (if
// any) and applies global flag overrides.
func loadConfig(c *cli.Context) (*config, error) {
	cfg := defaultConfig()

	if p := c.GlobalString("config"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		cfg, err = parseConfig(data)
		if err != nil {
			return nil, err
		}
	}

	if v := c.GlobalString("rpc"); v != "" {
		cfg.RPC.Endpoint = v
	}
	if v := c.GlobalString("contract"); v != "" {
		cfg.Contract = v
	}
	if v := c.GlobalString("log-level"); v != "" {
		cfg.Logger.Level = v
	}

	return cfg, nil
}

func (x *config) validateRPC() error {
	if x.RPC.Endpoint == "" {
		return errors.New("missing Neo RPC endpoint")
	}
	return nil
}

// contractHash returns the configured ledger address.
func (x *config) contractHash() (util.Uint160, error) {
	if x.Contract == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}
	return parseHash160(x.Contract)
}

// parseHash160 accepts both Neo address and LE hex string.
func parseHash160(s string) (util.Uint160, error) {
	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}

	h, err = util.Uint160DecodeStringLE(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("'%s' is neither Neo address nor LE hex string", s)
	}

	return h, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return c.Build()
}
