package main

import (
	"context"
	"database/sql"

	"talkregistration/config"
	"talkregistration/internal/domain"
	"talkregistration/internal/repository/memory"
	"talkregistration/internal/repository/postgres"
)

// stores bundles the three repositories of the selected backend.
type stores struct {
	talks         domain.TalkRepository
	registrations domain.RegistrationRepository
	users         domain.UserRepository
	db            *sql.DB
}

func openStores(ctx context.Context, cfg *config.Config, hasher domain.PasswordHasher) (*stores, error) {
	if cfg.StoreBackend != config.StorePostgres {
		return &stores{
			talks:         memory.NewTalkStore(),
			registrations: memory.NewRegistrationStore(),
			users:         memory.NewUserStore(hasher),
		}, nil
	}
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &stores{
		talks:         postgres.NewTalkRepository(db),
		registrations: postgres.NewRegistrationRepository(db),
		users:         postgres.NewUserRepository(db, hasher),
		db:            db,
	}, nil
}

// Close releases the database connection, if any.
func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
