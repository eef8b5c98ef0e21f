package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "holdem-default", cfg.Tables[0].Name)
}

func TestLoadServerConfigParsesHCL(t *testing.T) {
	doc := `
server {
  address   = "127.0.0.1"
  port      = 9090
  log_level = "debug"
}

table "main" {
  max_players = 6
  buy_in      = 500
  small_blind = 1
  big_blind   = 2
}
`
	path := filepath.Join(t.TempDir(), "holdem-server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "main", cfg.Tables[0].Name)
	assert.Equal(t, 6, cfg.Tables[0].MaxPlayers)
	assert.Equal(t, 2, cfg.Tables[0].BigBlind)
}

func TestValidateRejectsBadBlindOrdering(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Tables[0].SmallBlind = 10
	cfg.Tables[0].BigBlind = 5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestTableConfigGameConfigFillsDefaults(t *testing.T) {
	tc := TableConfig{Name: "bare"}
	gc := tc.GameConfig()
	assert.Equal(t, 9, gc.MaxPlayers)
	assert.Equal(t, 1000, gc.BuyIn)
	assert.Equal(t, 5, gc.SBSize)
	assert.Equal(t, 10, gc.BBSize)
}

func TestAddressFormatsHostPort(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}
