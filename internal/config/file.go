package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the optional TOML file accepted by update-cards. Only the
// keys present override the environment.
type fileConfig struct {
	DB struct {
		Driver   string `toml:"driver"`
		MongoURI string `toml:"mongo_uri"`
		Database string `toml:"database"`
		Path     string `toml:"path"`
	} `toml:"db"`
	Ingest struct {
		Language string `toml:"language"`
		DataURL  string `toml:"data_url"`
		AssetURL string `toml:"asset_url"`
		Sets     int    `toml:"sets"`
		WorkDir  string `toml:"work_dir"`
		Timeout  string `toml:"timeout"`
		Attempts int    `toml:"attempts"`
		Interval string `toml:"interval"`
	} `toml:"ingest"`
	Metrics struct {
		PushgatewayURL string `toml:"pushgateway_url"`
	} `toml:"metrics"`
}

// ApplyFile overlays the settings found in a TOML file onto c.
func (c *Config) ApplyFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	if err := toml.NewDecoder(file).Decode(&fc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setString(&c.DBDriver, fc.DB.Driver)
	setString(&c.MongoURI, fc.DB.MongoURI)
	setString(&c.MongoDatabase, fc.DB.Database)
	setString(&c.DBPath, fc.DB.Path)

	in := &c.Ingest
	setString(&in.Language, fc.Ingest.Language)
	setString(&in.DataBaseURL, fc.Ingest.DataURL)
	setString(&in.AssetBaseURL, fc.Ingest.AssetURL)
	setString(&in.WorkDir, fc.Ingest.WorkDir)
	setString(&in.PushgatewayURL, fc.Metrics.PushgatewayURL)
	if fc.Ingest.Sets > 0 {
		in.SetCount = fc.Ingest.Sets
	}
	if fc.Ingest.Attempts > 0 {
		in.FetchAttempts = fc.Ingest.Attempts
	}
	if err := setDuration(&in.DownloadTimeout, fc.Ingest.Timeout); err != nil {
		return fmt.Errorf("ingest.timeout: %w", err)
	}
	if err := setDuration(&in.FetchInterval, fc.Ingest.Interval); err != nil {
		return fmt.Errorf("ingest.interval: %w", err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
