package main

import (
	"fmt"

	"quillboard/internal/config"
	"quillboard/internal/store"
)

// openStore returns the configured engine. The queue is nil for postgres.
// badgerPath overrides cfg.BadgerPath; "" keeps bodies in memory, which is
// enough for commands that only touch Redis.
func openStore(cfg *config.Config, badgerPath string) (store.Store, store.ImportQueue, error) {
	switch cfg.Engine {
	case config.EnginePostgres:
		st, err := store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case config.EngineHybrid:
		st, err := store.NewHybridStore(cfg.RedisAddr, badgerPath)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Engine)
	}
}
