package repository

import (
	"sync"

	persistence "github.com/goliatone/go-persistence-bun"
)

var registerModels sync.Once

// NewClient opens the database described by cfg and wraps it in a
// go-persistence-bun client with the repository models registered.
// cfg.GetDriver and cfg.GetServer select the driver and the DSN.
func NewClient(cfg persistence.Config) (*persistence.Client, error) {
	sqldb, dialect, err := OpenSQL(Config{
		Driver: cfg.GetDriver(),
		DSN:    cfg.GetServer(),
	})
	if err != nil {
		return nil, err
	}

	registerModels.Do(func() {
		for _, model := range Models() {
			persistence.RegisterModel(model)
		}
	})

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}

	return client, nil
}
