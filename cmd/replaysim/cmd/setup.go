package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rustyeddy/replaysim/config"
	"github.com/rustyeddy/replaysim/internal/logger"
	"github.com/rustyeddy/replaysim/internal/metrics"
	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/session"
)

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.Init(level, cfg.Log.Format, os.Stderr), nil
}

// app is everything a replay needs, built from one config.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	journal journal.Journal
	metrics *metrics.Metrics
	sess    *session.Session
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	j, err := cfg.OpenJournal()
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	m := metrics.New(nil)

	sess, err := session.New(session.Config{
		StartingBalance: cfg.Account.StartingBalance,
		Bars:            cfg.Session.Bars,
		Warmup:          cfg.Session.Warmup,
		Interval:        cfg.Session.Interval(),
		Seed:            cfg.Session.Seed,
		Instruments:     reg,
		Journal:         j,
		Metrics:         m,
		Logger:          log,
	})
	if err != nil {
		j.Close()
		return nil, err
	}
	if err := sess.Load(cfg.Session.Instrument, cfg.Session.Timeframe); err != nil {
		j.Close()
		return nil, err
	}
	if cfg.Session.Overlay != "" {
		if err := sess.SetOverlay(cfg.Session.Overlay); err != nil {
			j.Close()
			return nil, err
		}
	}
	return &app{cfg: cfg, log: log, journal: j, metrics: m, sess: sess}, nil
}

func (a *app) Close() error {
	return a.journal.Close()
}
