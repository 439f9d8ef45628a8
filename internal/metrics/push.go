package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// IngestJob is the Pushgateway job name used by the update-cards command.
const IngestJob = "runeterra_update_cards"

// PushIngestion sends the ingestion metrics to a Prometheus Pushgateway.
// The update-cards process exits right after a run, so this is the only way
// those values reach Prometheus. An empty url disables the push.
func PushIngestion(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}

	err := push.New(url, IngestJob).
		Collector(SetDownloadsTotal).
		Collector(SetDownloadDuration).
		Collector(IngestRunsTotal).
		Collector(IngestCardsUpserted).
		Collector(IngestDuration).
		Collector(CollectionVersionInfo).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push ingestion metrics: %w", err)
	}
	return nil
}
