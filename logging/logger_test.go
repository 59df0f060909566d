// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VA7DBI/idguard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "debug"
	cfg.Logging.File = filepath.Join(t.TempDir(), "log", "idguard.log")
	cfg.Logging.MaxSizeMB = 1

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Info("cache ready")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"cache ready"`))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "loud"

	_, err := New(cfg)
	assert.Error(t, err)
}
