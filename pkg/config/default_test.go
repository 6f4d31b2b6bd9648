package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leptonai/memscope/pkg/units"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		homedir.Reset()
		defer homedir.Reset()

		cfg, err := DefaultConfig()
		require.NoError(t, err)

		assert.Equal(t, units.MiB, cfg.Unit)
		assert.Equal(t, int64(units.DefaultPageSizeKB), cfg.PageSizeKB)
		assert.Equal(t, OutputFormatPlain, cfg.OutputFormat)
		assert.Equal(t, DefaultProcDir, cfg.ProcDir)
		assert.Empty(t, cfg.FieldTablesFile, "no per-user tables file exists")
		assert.NoError(t, cfg.Validate())
	})

	t.Run("per-user field tables", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		homedir.Reset()
		defer homedir.Reset()

		p := filepath.Join(home, ".memscope", "field-tables.yaml")
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("[]\n"), 0644))

		cfg, err := DefaultConfig()
		require.NoError(t, err)
		assert.Equal(t, p, cfg.FieldTablesFile)
	})

	t.Run("explicit field tables with tilde", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		homedir.Reset()
		defer homedir.Reset()

		cfg, err := DefaultConfig(WithFieldTablesFile("~/tables.yaml"), WithTopN(5))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "tables.yaml"), cfg.FieldTablesFile)
		assert.Equal(t, 5, cfg.TopN)
	})
}
