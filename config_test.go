package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenNoFile(t *testing.T) {
	v := viper.New()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.ini")

	cfg, err := LoadConfig(v, cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 44445, cfg.Port)
	assert.Equal(t, 5000, cfg.MaxWorkers)
}

func TestLoadConfigReadsIniFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gobite.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte("port = 7000\nmax_workers = 42\n"), 0o644))

	v := viper.New()
	cfg, err := LoadConfig(v, cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 42, cfg.MaxWorkers)
}

func TestConfigValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.DataPath = writeTempFile(t, "a\n")

	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfigValidateRequiresReadableDataPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataPath = "/does/not/exist"

	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfigValidateRequiresTLSMaterialWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataPath = writeTempFile(t, "a\n")
	cfg.TLSEnabled = true

	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataPath = writeTempFile(t, "a\n")

	assert.NoError(t, cfg.Validate())
}
