package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// BigQuerySolana queries the public Solana dataset in BigQuery. The job
// network is the fully qualified dataset, e.g.
// bigquery-public-data.crypto_solana_mainnet_us.
type BigQuerySolana struct{}

var _ Provider = BigQuerySolana{}

func (BigQuerySolana) Name() entities.Provider {
	return entities.ProviderBigQuery
}

func (BigQuerySolana) BuildQuery(q Query, qc QueryContext) (string, error) {
	if qc.Network == "" {
		return "", fmt.Errorf("dataset is required")
	}
	if strings.ContainsAny(qc.Network, "`;") {
		return "", fmt.Errorf("invalid dataset %q", qc.Network)
	}
	if q.PageSize <= 0 {
		return "", fmt.Errorf("page size must be positive")
	}

	signers := make([]string, len(q.Addresses))
	for i, a := range q.Addresses {
		signers[i] = sqlString(a)
	}
	start := sqlString(formatTime(q.Range.Start))
	end := sqlString(formatTime(q.Range.End))

	var b strings.Builder
	b.WriteString("WITH signer_sigs AS (\n")
	b.WriteString("  SELECT DISTINCT\n")
	b.WriteString("    tx.signature,\n")
	b.WriteString("    (SELECT a.pubkey FROM UNNEST(tx.accounts) AS a WITH OFFSET AS idx WHERE a.signer = TRUE ORDER BY idx LIMIT 1) AS fee_payer\n")
	fmt.Fprintf(&b, "  FROM `%s.Transactions` tx\n", qc.Network)
	fmt.Fprintf(&b, "  WHERE tx.block_timestamp >= TIMESTAMP(%s) AND tx.block_timestamp < TIMESTAMP(%s)\n", start, end)
	fmt.Fprintf(&b, "    AND EXISTS (SELECT 1 FROM UNNEST(tx.accounts) a WHERE a.signer = TRUE AND a.pubkey IN (%s))\n", strings.Join(signers, ", "))
	b.WriteString(")\n")
	b.WriteString("SELECT\n")
	b.WriteString("  t.mint AS address,\n")
	b.WriteString("  s.fee_payer AS transaction_from,\n")
	b.WriteString("  t.source AS sender,\n")
	b.WriteString("  t.destination AS recipient,\n")
	b.WriteString("  CAST(SAFE_DIVIDE(t.value, POW(10, t.decimals)) AS STRING) AS amount,\n")
	b.WriteString("  t.block_timestamp,\n")
	b.WriteString("  t.tx_signature AS tx_hash\n")
	fmt.Fprintf(&b, "FROM `%s.Token Transfers` t\n", qc.Network)
	b.WriteString("JOIN signer_sigs s ON t.tx_signature = s.signature\n")
	fmt.Fprintf(&b, "WHERE t.block_timestamp >= TIMESTAMP(%s) AND t.block_timestamp < TIMESTAMP(%s)\n", start, end)
	fmt.Fprintf(&b, "  AND t.mint = %s\n", sqlString(qc.Facilitator.Token.Address))
	b.WriteString("  AND t.value IS NOT NULL\n")
	b.WriteString("  AND t.decimals IS NOT NULL\n")
	b.WriteString("ORDER BY t.block_timestamp DESC\n")
	fmt.Fprintf(&b, "LIMIT %d", q.PageSize)
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	b.WriteString("\n")
	return b.String(), nil
}

type bigQueryTransferRow struct {
	Address         string           `json:"address"`
	TransactionFrom string           `json:"transaction_from"`
	Sender          string           `json:"sender"`
	Recipient       string           `json:"recipient"`
	Amount          *decimal.Decimal `json:"amount"`
	BlockTimestamp  string           `json:"block_timestamp"`
	TxHash          string           `json:"tx_hash"`
}

func (BigQuerySolana) TransformResponse(raw json.RawMessage, qc QueryContext) ([]entities.TransferEvent, error) {
	var rows []bigQueryTransferRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &domain.MalformedResponseError{Field: "rows", Err: err}
	}

	events := make([]entities.TransferEvent, 0, len(rows))
	for i, r := range rows {
		b := rowBuilder{index: i}
		ev := entities.TransferEvent{
			Chain:           qc.Chain,
			Provider:        entities.ProviderBigQuery,
			Address:         b.str("address", r.Address),
			TransactionFrom: b.str("transaction_from", r.TransactionFrom),
			Sender:          b.str("sender", r.Sender),
			Recipient:       b.str("recipient", r.Recipient),
			TxHash:          b.str("tx_hash", r.TxHash),
			Amount:          b.amount("amount", r.Amount, qc.Facilitator.Token.Decimals),
			BlockTimestamp:  b.timestamp("block_timestamp", r.BlockTimestamp),
			Decimals:        qc.Facilitator.Token.Decimals,
			FacilitatorID:   qc.Facilitator.ID,
		}
		if b.err != nil {
			return nil, b.err
		}
		events = append(events, ev)
	}
	return events, nil
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
