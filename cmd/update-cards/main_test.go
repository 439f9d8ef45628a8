package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeterra-roulette/backend/internal/config"
)

func TestApplyFlagsOnlyOverridesChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--driver=sqlite", "--sets=2", "--timeout=45s", "--pushgateway=http://pg:9091"}))

	cfg := &config.Config{
		DBDriver: "mongo",
		MongoURI: "mongodb://keep:27017",
		Ingest: config.IngestConfig{
			SetCount:      3,
			FetchAttempts: 4,
		},
	}

	var f cliFlags
	f.driver, f.sets, f.timeout, f.pushURL = "sqlite", 2, 45*time.Second, "http://pg:9091"
	applyFlags(cmd.Flags(), &f, cfg)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2, cfg.Ingest.SetCount)
	assert.Equal(t, 45*time.Second, cfg.Ingest.DownloadTimeout)
	assert.Equal(t, "http://pg:9091", cfg.Ingest.PushgatewayURL)

	assert.Equal(t, "mongodb://keep:27017", cfg.MongoURI)
	assert.Equal(t, 4, cfg.Ingest.FetchAttempts)
}
