package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leptonai/memscope/pkg/units"
)

func validConfig() Config {
	return Config{
		Unit:         units.MiB,
		PageSizeKB:   4,
		OutputFormat: OutputFormatPlain,
		ProcDir:      "/proc",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
		anyErr  bool
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "json", modify: func(c *Config) { c.OutputFormat = OutputFormatJSON }},
		{name: "pages unit", modify: func(c *Config) { c.Unit = units.Pages }},
		{name: "zero page size", modify: func(c *Config) { c.PageSizeKB = 0 }, wantErr: ErrInvalidPageSize},
		{name: "negative top", modify: func(c *Config) { c.TopN = -1 }, wantErr: ErrInvalidTopN},
		{name: "bad unit", modify: func(c *Config) { c.Unit = "T" }, anyErr: true},
		{name: "bad output", modify: func(c *Config) { c.OutputFormat = "yaml" }, anyErr: true},
		{name: "no proc dir", modify: func(c *Config) { c.ProcDir = "" }, anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
