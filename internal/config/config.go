// Package config loads generator settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stixgraph/internal/logger"
	"stixgraph/internal/stixcore"
)

// Config holds every setting shared by the generator and the cmd/ tools.
type Config struct {
	Source    string `yaml:"source"`
	OutputDir string `yaml:"output_dir"`
	Schema    string `yaml:"schema"`
	LogMode   string `yaml:"log_mode"`

	Framework Framework         `yaml:"framework"`
	Prefixes  map[string]string `yaml:"prefixes"`

	DBPath     string   `yaml:"db_path"`
	IndexPath  string   `yaml:"index_path"`
	ListenAddr string   `yaml:"listen_addr"`
	Kafka      Kafka    `yaml:"kafka"`
	Platforms  []string `yaml:"default_platforms"`
}

// Framework describes the dataset being converted. It feeds the matrix, the
// author identity, the marking definition and the canonical references.
type Framework struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	SourceName       string `yaml:"source_name"`
	URL              string `yaml:"url"`
	ReferenceBaseURL string `yaml:"reference_base_url"`
	Author           string `yaml:"author"`
	MarkingStatement string `yaml:"marking_statement"`
	KillChainName    string `yaml:"kill_chain_name"`
}

type Kafka struct {
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group_id"`
}

// Default returns the settings used for the AMITT workbook.
func Default() *Config {
	return &Config{
		Source:    "amitt_metadata.xlsx",
		OutputDir: "amitt-attack",
		Schema:    "stix-2.0",
		LogMode:   "dev",
		Framework: Framework{
			Name:             "AMITT Misinformation Framework",
			Description:      "Adversarial Misinformation and Influence Tactics and Techniques",
			SourceName:       "mitre-attack",
			URL:              "https://github.com/misinfosecproject/amitt_framework",
			ReferenceBaseURL: "https://github.com/misinfosecproject/amitt_framework/blob/master",
			Author:           "misinfosec project",
			MarkingStatement: "CC-BY-4.0 misinfosec project",
			KillChainName:    "mitre-attack",
		},
		DBPath:     "amitt-attack.db",
		IndexPath:  "amitt-attack.bleve",
		ListenAddr: ":8080",
		Kafka: Kafka{
			Broker:  "localhost:9092",
			Topic:   "stix-objects",
			GroupID: "stixgraph-indexer-group",
		},
		Platforms: []string{"Linux", "macOS", "Windows"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. A missing file is an error; an empty path is not.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(log *logger.Logger) {
	override := func(key string, dst *string) {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			if log != nil {
				log.Debug("environment variable not set, using default", "key", key, "value", *dst)
			}
			return
		}
		*dst = v
	}
	override("STIXGRAPH_SOURCE", &c.Source)
	override("STIXGRAPH_OUT", &c.OutputDir)
	override("STIXGRAPH_SCHEMA", &c.Schema)
	override("LOG_MODE", &c.LogMode)
	override("DB_PATH", &c.DBPath)
	override("INDEX_PATH", &c.IndexPath)
	override("LISTEN_ADDR", &c.ListenAddr)
	override("KAFKA_BROKER", &c.Kafka.Broker)
	override("KAFKA_TOPIC", &c.Kafka.Topic)
}

var knownSchemas = map[string]bool{"stix-2.0": true, "stix-2.1": true}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if !knownSchemas[c.Schema] {
		errs = append(errs, fmt.Errorf("unknown schema %q", c.Schema))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if strings.TrimSpace(c.Framework.SourceName) == "" {
		errs = append(errs, errors.New("framework.source_name is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// PipelineOptions translates the settings into conversion options.
func (c *Config) PipelineOptions() (stixcore.PipelineOptions, error) {
	adapter, err := stixcore.SchemaByName(c.Schema)
	if err != nil {
		return stixcore.PipelineOptions{}, err
	}
	scheme := stixcore.DefaultCodeScheme()
	if len(c.Prefixes) > 0 {
		prefixes, err := stixcore.ParsePrefixes(c.Prefixes)
		if err != nil {
			return stixcore.PipelineOptions{}, err
		}
		scheme = stixcore.NewCodeScheme(prefixes)
	}
	fw := c.Framework
	return stixcore.PipelineOptions{
		Framework: stixcore.Framework{
			Name:             fw.Name,
			Description:      fw.Description,
			SourceName:       fw.SourceName,
			URL:              fw.URL,
			Author:           fw.Author,
			MarkingStatement: fw.MarkingStatement,
			KillChainName:    fw.KillChainName,
		},
		Schema:           adapter,
		Scheme:           scheme,
		ReferenceBaseURL: fw.ReferenceBaseURL,
		DefaultPlatforms: c.Platforms,
	}, nil
}
