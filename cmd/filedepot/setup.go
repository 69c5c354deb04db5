package main

import (
	"context"
	"fmt"
	"os"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/config"
	"github.com/filedepot/filedepot/database"
	"github.com/filedepot/filedepot/filesystem"
)

// depot bundles the wired-up runtime pieces every subcommand needs: the
// metadata store, the storage root, and the registered collections.
type depot struct {
	registry *filedepot.Registry
	close    func()
}

// openDepot connects the database, opens the storage root, and registers
// one Collection per configured collection. The returned close func tears
// down the database connection and the storage root.
func openDepot(ctx context.Context, cfg *config.Config) (*depot, error) {
	store, pending, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err = os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		closeDB()
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	storage := filesystem.NewStore(root)

	registry := filedepot.NewRegistry()
	for _, cc := range cfg.Collections {
		coll, collErr := filedepot.NewCollection(store, pending, storage, filedepot.CollectionConfig{
			Name:   cc.Name,
			Public: cc.Public,
		})
		if collErr != nil {
			closeDB()
			_ = root.Close()
			return nil, fmt.Errorf("create collection %s: %w", cc.Name, collErr)
		}
		if regErr := registry.Register(coll); regErr != nil {
			closeDB()
			_ = root.Close()
			return nil, fmt.Errorf("register collection %s: %w", cc.Name, regErr)
		}
	}

	return &depot{
		registry: registry,
		close: func() {
			_ = root.Close()
			closeDB()
		},
	}, nil
}

// collectionFromFlag resolves the --collection flag against the registry.
func (d *depot) collection(name string) (*filedepot.Collection, error) {
	coll, ok := d.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s", name)
	}
	return coll, nil
}
