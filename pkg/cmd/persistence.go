package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/persistence/file"
	"github.com/siteforge/relay/pkg/persistence/postgresql"
)

// NewPersistence builds the backing store from the database URL scheme.
// postgres:// URLs get the PostgreSQL store, anything else is treated as a
// directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, _, _ := strings.Cut(databaseURL, "://")

	switch scheme {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to postgres: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}
