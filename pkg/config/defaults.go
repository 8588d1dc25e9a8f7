package config

import (
	_ "embed"
	"errors"
	"strings"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// GetDefaultsContent returns the embedded defaults file.
func GetDefaultsContent() string {
	return string(defaultConfig)
}

// GenerateConfigContent returns the defaults with every assignment commented out, so that
// uncommenting a line in a user or project config.toml restores exactly that default.
func GenerateConfigContent() string {
	var b strings.Builder
	for line := range strings.Lines(GetDefaultsContent()) {
		if isAssignment(line) {
			b.WriteString("# ")
		}
		b.WriteString(line)
	}
	return b.String()
}

// isAssignment is true for lines that are neither blank, comments nor table headers.
func isAssignment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "[")
}

// rawBytesProvider feeds the embedded defaults to koanf
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}
