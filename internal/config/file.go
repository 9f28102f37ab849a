package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fruitsalade/mediagen/internal/filter"
)

// Mode is a directory permission written in octal, quoted or not.
type Mode os.FileMode

// UnmarshalYAML implements yaml.Unmarshaler. The scalar text is read as
// octal so 0755 and "755" mean the same thing.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: mode must be a scalar", node.Line)
	}
	mode, err := ParseMode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = Mode(mode)
	return nil
}

type fileConfig struct {
	Generator struct {
		BaseDirectory       string `yaml:"baseDirectory"`
		FilterDirectory     string `yaml:"filterDirectory"`
		CreateDirectory     *bool  `yaml:"createDirectory"`
		CreateDirectoryMode *Mode  `yaml:"createDirectoryMode"`
	} `yaml:"generator"`

	Filters     filter.Config `yaml:"filters"`
	FiltersFile string        `yaml:"filtersFile"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Watch struct {
		MetricsAddr string `yaml:"metricsAddr"`
		Workers     int    `yaml:"workers"`
		QueueSize   int    `yaml:"queueSize"`
		Interval    string `yaml:"interval"`
	} `yaml:"watch"`

	Adapters struct {
		FFmpegTimeout string `yaml:"ffmpegTimeout"`
		ImageQuality  int    `yaml:"imageQuality"`
	} `yaml:"adapters"`

	Mirror struct {
		Backend string         `yaml:"backend"`
		Config  map[string]any `yaml:"config"`
	} `yaml:"mirror"`

	DatabaseURL string `yaml:"databaseURL"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	g := fc.Generator
	if g.BaseDirectory != "" {
		c.Settings.BaseDirectory = relativeTo(path, g.BaseDirectory)
	}
	if g.FilterDirectory != "" {
		c.Settings.FilterDirectory = g.FilterDirectory
	}
	if g.CreateDirectory != nil {
		c.Settings.CreateDirectory = *g.CreateDirectory
	}
	if g.CreateDirectoryMode != nil {
		c.Settings.CreateDirectoryMode = os.FileMode(*g.CreateDirectoryMode)
	}

	if fc.Filters != nil {
		c.Filters = fc.Filters
	}
	if fc.FiltersFile != "" {
		c.FiltersFile = relativeTo(path, fc.FiltersFile)
	}

	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.MetricsAddr, fc.Watch.MetricsAddr)
	setString(&c.FFmpegTimeout, fc.Adapters.FFmpegTimeout)
	setString(&c.MirrorBackend, fc.Mirror.Backend)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	if fc.Watch.Workers != 0 {
		c.Workers = fc.Watch.Workers
	}
	if fc.Watch.QueueSize != 0 {
		c.QueueSize = fc.Watch.QueueSize
	}
	if fc.Adapters.ImageQuality != 0 {
		c.ImageQuality = fc.Adapters.ImageQuality
	}
	if fc.Watch.Interval != "" {
		d, err := time.ParseDuration(fc.Watch.Interval)
		if err != nil {
			return fmt.Errorf("%s: watch.interval: %w", path, err)
		}
		c.WatchInterval = d
	}
	if fc.Mirror.Config != nil {
		raw, err := json.Marshal(fc.Mirror.Config)
		if err != nil {
			return fmt.Errorf("%s: mirror.config: %w", path, err)
		}
		c.MirrorConfig = raw
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} in input. Unset variables
// without a default expand to the empty string; a bare $ is left alone.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(groups[1]); ok && v != "" {
			return v
		}
		return groups[2]
	})
}
