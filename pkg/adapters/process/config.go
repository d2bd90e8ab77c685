package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommandConfig binds a stage name to a local command.
type CommandConfig struct {
	Stage       string            `yaml:"stage" json:"stage"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
}

// ConfigFile is the layout of handlers.yaml.
type ConfigFile struct {
	Commands []CommandConfig `yaml:"commands" json:"commands"`
}

// LoadCommands reads a YAML or JSON handler file keyed by stage name.
// A missing file yields an empty registry.
func LoadCommands(path string) (map[string]CommandConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]CommandConfig{}, nil
		}
		return nil, fmt.Errorf("read handler config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse handler config %s: %w", filepath.Base(path), err)
	}

	commands := make(map[string]CommandConfig, len(cfg.Commands))
	for _, c := range cfg.Commands {
		if c.Stage == "" || c.Command == "" {
			continue
		}
		commands[c.Stage] = c
	}
	return commands, nil
}
