package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
)

// Ensure TransferEventRepo implements TransferEventRepository
var _ repositories.TransferEventRepository = (*TransferEventRepo)(nil)

const transferEventColumns = `id, chain, provider, address, transaction_from, sender, recipient,
		   amount, block_timestamp, tx_hash, decimals, facilitator_id, created_at`

// TransferEventRepo implements TransferEventRepository using PostgreSQL
type TransferEventRepo struct {
	db *sqlx.DB
}

// NewTransferEventRepo creates a new transfer event repository
func NewTransferEventRepo(db *sqlx.DB) *TransferEventRepo {
	return &TransferEventRepo{db: db}
}

// FindMostRecent returns the newest stored transfer of a (chain, provider,
// facilitator) stream, or nil when the stream is empty
func (r *TransferEventRepo) FindMostRecent(ctx context.Context, chain entities.Chain, provider entities.Provider, facilitatorID string) (*entities.TransferEvent, error) {
	query := `
		SELECT ` + transferEventColumns + `
		FROM transfer_events
		WHERE chain = $1 AND provider = $2 AND facilitator_id = $3
		ORDER BY block_timestamp DESC
		LIMIT 1
	`

	var event entities.TransferEvent
	if err := r.db.GetContext(ctx, &event, query, chain, provider, facilitatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get most recent transfer: %w", err)
	}

	event.BlockTimestamp = event.BlockTimestamp.UTC()
	return &event, nil
}

// InsertMany inserts transfers in a single transaction. Rows that collide on
// the natural key are skipped and not counted.
func (r *TransferEventRepo) InsertMany(ctx context.Context, transfers []entities.TransferEvent) (int64, error) {
	if len(transfers) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO transfer_events (chain, provider, address, transaction_from, sender, recipient,
									 amount, block_timestamp, tx_hash, decimals, facilitator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (chain, tx_hash, address, sender, recipient, amount, provider) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range transfers {
		res, err := stmt.ExecContext(ctx,
			t.Chain,
			t.Provider,
			t.Address,
			t.TransactionFrom,
			t.Sender,
			t.Recipient,
			t.Amount,
			t.BlockTimestamp,
			t.TxHash,
			t.Decimals,
			t.FacilitatorID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transfer %s: %w", t.TxHash, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// GetByFilter retrieves transfers matching the given filter
func (r *TransferEventRepo) GetByFilter(ctx context.Context, filter entities.TransferEventFilter) ([]entities.TransferEvent, error) {
	query, args := r.buildFilterQuery(filter, false)

	var transfers []entities.TransferEvent
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	for i := range transfers {
		transfers[i].BlockTimestamp = transfers[i].BlockTimestamp.UTC()
	}
	return transfers, nil
}

// GetCount returns the count of transfers matching the filter
func (r *TransferEventRepo) GetCount(ctx context.Context, filter entities.TransferEventFilter) (int64, error) {
	query, args := r.buildFilterQuery(filter, true)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to get transfer count: %w", err)
	}

	return count, nil
}

// buildFilterQuery builds the SQL query for filtering transfers
func (r *TransferEventRepo) buildFilterQuery(filter entities.TransferEventFilter, countOnly bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	add := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, arg)
		argIdx++
	}

	if filter.Chain != nil {
		add("chain = $%d", *filter.Chain)
	}
	if filter.Provider != nil {
		add("provider = $%d", *filter.Provider)
	}
	if filter.FacilitatorID != nil {
		add("facilitator_id = $%d", *filter.FacilitatorID)
	}
	if filter.Sender != nil {
		add("sender = $%d", *filter.Sender)
	}
	if filter.Recipient != nil {
		add("recipient = $%d", *filter.Recipient)
	}
	if filter.FromTime != nil {
		add("block_timestamp >= $%d", *filter.FromTime)
	}
	if filter.ToTime != nil {
		add("block_timestamp < $%d", *filter.ToTime)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	if countOnly {
		return fmt.Sprintf("SELECT COUNT(*) FROM transfer_events %s", whereClause), args
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transfer_events
		%s
		ORDER BY block_timestamp DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, transferEventColumns, whereClause, argIdx, argIdx+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

// statsRow holds one row of the per-stream stats query
type statsRow struct {
	Chain            entities.Chain    `db:"chain"`
	Provider         entities.Provider `db:"provider"`
	TotalTransfers   int64             `db:"total_transfers"`
	TotalAmount      string            `db:"total_amount"`
	UniqueRecipients int64             `db:"unique_recipients"`
	FirstTransfer    *time.Time        `db:"first_transfer"`
	LastTransfer     *time.Time        `db:"last_transfer"`
}

// GetFacilitatorStats returns aggregated statistics per (chain, provider)
// stream of a facilitator id
func (r *TransferEventRepo) GetFacilitatorStats(ctx context.Context, facilitatorID string) ([]repositories.FacilitatorStats, error) {
	query := `
		SELECT
			chain,
			provider,
			COUNT(*) AS total_transfers,
			COALESCE(SUM(amount), 0)::TEXT AS total_amount,
			COUNT(DISTINCT recipient) AS unique_recipients,
			MIN(block_timestamp) AS first_transfer,
			MAX(block_timestamp) AS last_transfer
		FROM transfer_events
		WHERE facilitator_id = $1
		GROUP BY chain, provider
		ORDER BY chain, provider
	`

	var rows []statsRow
	if err := r.db.SelectContext(ctx, &rows, query, facilitatorID); err != nil {
		return nil, fmt.Errorf("failed to get facilitator stats: %w", err)
	}

	result := make([]repositories.FacilitatorStats, len(rows))
	for i, row := range rows {
		result[i] = repositories.FacilitatorStats{
			FacilitatorID:    facilitatorID,
			Chain:            row.Chain,
			Provider:         row.Provider,
			TotalTransfers:   row.TotalTransfers,
			TotalAmount:      row.TotalAmount,
			UniqueRecipients: row.UniqueRecipients,
			FirstTransferAt:  utcPtr(row.FirstTransfer),
			LastTransferAt:   utcPtr(row.LastTransfer),
		}
	}

	return result, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
