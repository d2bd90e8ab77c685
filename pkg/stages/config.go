package stages

import (
	"fmt"
	"os"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Config is the YAML overlay applied on top of the default table.
//
//	base_url: https://hooks.example.com/api
//	catalog:
//	  table_schema: analytics
//	stages:
//	  - name: profile_sources
//	    poll_interval: 2s
//	    max_wait: 90s
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	PollInterval Duration      `yaml:"poll_interval"`
	MaxWait      Duration      `yaml:"max_wait"`
	Catalog      *Catalog      `yaml:"catalog"`
	Stages       []StageConfig `yaml:"stages"`
}

// StageConfig overrides selected fields of one stage, matched by name.
type StageConfig struct {
	Name         string   `yaml:"name"`
	Title        string   `yaml:"title"`
	Endpoint     string   `yaml:"endpoint"`
	Mode         string   `yaml:"mode"`
	PollInterval Duration `yaml:"poll_interval"`
	MaxWait      Duration `yaml:"max_wait"`
}

// UnmarshalYAML allows a stage entry to be a plain name.
func (s *StageConfig) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StageConfig
	return value.Decode((*raw)(s))
}

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "5s", "2m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// ParseConfig parses YAML bytes into a Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses a YAML overlay file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse stage config %s: %w", path, err)
	}
	return cfg, nil
}

// Build returns the default table with the overlay applied. A nil Config
// yields the stock table.
func (c *Config) Build() (*Table, error) {
	opts := Options{Catalog: DefaultCatalog()}
	if c != nil {
		opts.BaseURL = c.BaseURL
		opts.PollInterval = c.PollInterval.Duration()
		opts.MaxWait = c.MaxWait.Duration()
		if c.Catalog != nil {
			opts.Catalog = mergeCatalog(opts.Catalog, *c.Catalog)
		}
	}
	base, err := DataToInsights(opts)
	if err != nil || c == nil || len(c.Stages) == 0 {
		return base, err
	}

	defs := base.All()
	for i, sc := range c.Stages {
		pos, _, ok := base.Lookup(sc.Name)
		if !ok {
			return nil, fmt.Errorf("stage override %d: %q not in table", i, sc.Name)
		}
		d := &defs[pos-1]
		if sc.Title != "" {
			d.Title = sc.Title
		}
		if sc.Endpoint != "" {
			d.Endpoint = sc.Endpoint
		}
		if sc.Mode != "" {
			d.Mode = domain.DispatchMode(sc.Mode)
		}
		if sc.PollInterval > 0 {
			d.PollInterval = sc.PollInterval.Duration()
		}
		if sc.MaxWait > 0 {
			d.MaxWait = sc.MaxWait.Duration()
		}
	}
	return NewTable(defs...)
}

func mergeCatalog(base, over Catalog) Catalog {
	if len(over.DataSources) > 0 {
		base.DataSources = over.DataSources
	}
	if len(over.UseCases) > 0 {
		base.UseCases = over.UseCases
	}
	if over.TableSchema != "" {
		base.TableSchema = over.TableSchema
	}
	return base
}
