package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/metrics"
)

const bigQueryLabel = "bigquery"

// BigQueryExecutor runs SQL against Google BigQuery and returns the rows as a
// JSON array
type BigQueryExecutor struct {
	client *bigquery.Client
	logger *zap.Logger
}

var _ Executor = (*BigQueryExecutor)(nil)

// NewBigQueryExecutor creates a BigQuery client for projectID. When
// credentialsFile is empty, application default credentials are used.
func NewBigQueryExecutor(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*BigQueryExecutor, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	return &BigQueryExecutor{client: client, logger: logger}, nil
}

// Execute runs the query and collects every result row
func (e *BigQueryExecutor) Execute(ctx context.Context, query string) (json.RawMessage, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues(bigQueryLabel).Observe(time.Since(start).Seconds())
	}()

	it, err := e.client.Query(query).Read(ctx)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(bigQueryLabel, "job_error").Inc()
		return nil, &domain.ProviderError{Messages: []string{err.Error()}}
	}

	rows := make([]map[string]bigquery.Value, 0)
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			metrics.ProviderRequests.WithLabelValues(bigQueryLabel, "network_error").Inc()
			return nil, &domain.TransportError{Err: fmt.Errorf("failed to read rows: %w", err)}
		}
		rows = append(rows, row)
	}
	metrics.ProviderRequests.WithLabelValues(bigQueryLabel, "ok").Inc()

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, &domain.MalformedResponseError{Field: "rows", Err: err}
	}

	e.logger.Debug("BigQuery query completed",
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return raw, nil
}

// Close releases the underlying client
func (e *BigQueryExecutor) Close() error {
	return e.client.Close()
}
