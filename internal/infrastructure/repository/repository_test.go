package repository

import (
	"context"
	"testing"

	"free-shipping-bar/internal/config"
	"free-shipping-bar/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	client, err := database.Open(ctx, config.DBConfig{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(ctx, "up"))
	return client.DB()
}
