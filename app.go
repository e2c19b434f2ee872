package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ticketgate/backend"
	"ticketgate/config"
	"ticketgate/journal"
	"ticketgate/logger"
	"ticketgate/scanner"
	"ticketgate/session"
	"ticketgate/validation"
)

// app holds the long-lived parts shared by serve and console.
type app struct {
	store    session.Store
	journal  journal.Journal
	stations *validation.Stations
}

func openApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var j journal.Journal
	if cfg.Journal.DatabaseURL != "" {
		pg, err := journal.OpenPostgres(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			store.Close()
			return nil, err
		}
		log.Info("Journaling attempts to Postgres")
		j = pg
	} else {
		j = journal.NewMemoryJournal(cfg.Journal.Size)
	}

	client := backend.NewClient(backend.Config{
		BaseURL:     cfg.Backend.BaseURL,
		VerifyPath:  cfg.Backend.VerifyPath,
		CheckInPath: cfg.Backend.CheckInPath,
		Timeout:     cfg.Backend.Timeout,
		Token:       cfg.Backend.Token,
	})

	stations := validation.NewStations(func(brand string) *validation.Station {
		stationLog := &logger.Logger{Logger: log.With(zap.String("brand", brand))}
		pipeline := validation.NewPipeline(client, brand, cfg.Auth.OverrideBrands, stationLog)
		return validation.NewStation(pipeline, brand, j, stationLog)
	})

	return &app{store: store, journal: j, stations: stations}, nil
}

func (a *app) Close() error {
	return errors.Join(a.journal.Close(), a.store.Close())
}

func openStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		return session.OpenRedis(ctx, session.RedisConfig{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
			StationID:   cfg.Session.StationID,
			TTL:         cfg.Session.TTL,
		})
	default:
		return session.OpenBolt(cfg.Session.BoltPath)
	}
}

// newDevice returns a nil device for mode "none". The push source is only
// set in push mode.
func newDevice(cfg config.CameraConfig) (scanner.Device, *scanner.PushSource, error) {
	switch cfg.Mode {
	case "push":
		push := scanner.NewPushSource(1)
		return scanner.NewZXingDevice(push), push, nil
	case "spool":
		return scanner.NewZXingDevice(scanner.NewSpoolSource(cfg.SpoolDir)), nil, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown camera mode %q", cfg.Mode)
	}
}
