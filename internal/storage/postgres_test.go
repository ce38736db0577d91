//go:build integration

package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/pkg/config"
)

func TestPostgresStorage(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg, err := config.ParseDatabaseURL(dbURL)
	require.NoError(t, err)

	s, err := NewPostgresStorage(DatabaseConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}
