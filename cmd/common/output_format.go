package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leptonai/memscope/pkg/config"
)

// ParseOutputFormat validates and normalizes output format values.
// Empty values default to plain output.
func ParseOutputFormat(raw string) (config.OutputFormat, error) {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	if normalized == "" {
		return config.OutputFormatPlain, nil
	}

	switch f := config.OutputFormat(normalized); f {
	case config.OutputFormatPlain, config.OutputFormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (supported: %q, %q)", raw, config.OutputFormatPlain, config.OutputFormatJSON)
	}
}

func WriteJSONToWriter(w io.Writer, v any) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
