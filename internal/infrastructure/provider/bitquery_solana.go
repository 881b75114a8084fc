package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// BitquerySolana queries the Bitquery v1 GraphQL API for Solana SPL transfers
// signed by the facilitator
type BitquerySolana struct{}

var _ Provider = BitquerySolana{}

func (BitquerySolana) Name() entities.Provider {
	return entities.ProviderBitquery
}

func (BitquerySolana) BuildQuery(q Query, qc QueryContext) (string, error) {
	if q.PageSize <= 0 {
		return "", fmt.Errorf("page size must be positive")
	}
	network := qc.Network
	if network == "" {
		network = "solana"
	}

	options := fmt.Sprintf(`{desc: "block.height", limit: %d}`, q.PageSize)
	if q.Offset > 0 {
		options = fmt.Sprintf(`{desc: "block.height", limit: %d, offset: %d}`, q.PageSize, q.Offset)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "{\n  solana(network: %s) {\n", network)
	b.WriteString("    sent: transfers(\n")
	fmt.Fprintf(&b, "      options: %s\n", options)
	fmt.Fprintf(&b, "      time: {since: %q, before: %q}\n", formatTime(q.Range.Start), formatTime(q.Range.End))
	b.WriteString("      amount: {gt: 0}\n")
	fmt.Fprintf(&b, "      signer: {in: %s}\n", quoteList(q.Addresses))
	fmt.Fprintf(&b, "      currency: {is: %q}\n", qc.Facilitator.Token.Address)
	b.WriteString("    ) {\n")
	b.WriteString("      block { timestamp { time(format: \"%Y-%m-%dT%H:%M:%SZ\") } }\n")
	b.WriteString("      sender { address }\n")
	b.WriteString("      receiver { address }\n")
	b.WriteString("      amount\n")
	b.WriteString("      currency { address }\n")
	b.WriteString("      transaction { feePayer signature }\n")
	b.WriteString("    }\n  }\n}\n")
	return b.String(), nil
}

type solanaTransfersData struct {
	Solana *struct {
		Sent []solanaTransfer `json:"sent"`
	} `json:"solana"`
}

type solanaTransfer struct {
	Block struct {
		Timestamp struct {
			Time string `json:"time"`
		} `json:"timestamp"`
	} `json:"block"`
	Sender struct {
		Address string `json:"address"`
	} `json:"sender"`
	Receiver struct {
		Address string `json:"address"`
	} `json:"receiver"`
	Amount   *decimal.Decimal `json:"amount"`
	Currency struct {
		Address string `json:"address"`
	} `json:"currency"`
	Transaction struct {
		FeePayer  string `json:"feePayer"`
		Signature string `json:"signature"`
	} `json:"transaction"`
}

func (BitquerySolana) TransformResponse(raw json.RawMessage, qc QueryContext) ([]entities.TransferEvent, error) {
	var data solanaTransfersData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &domain.MalformedResponseError{Field: "solana.sent", Err: err}
	}
	if data.Solana == nil {
		return nil, &domain.MalformedResponseError{Field: "solana"}
	}

	events := make([]entities.TransferEvent, 0, len(data.Solana.Sent))
	for i, t := range data.Solana.Sent {
		b := rowBuilder{index: i}
		ev := entities.TransferEvent{
			Chain:           qc.Chain,
			Provider:        entities.ProviderBitquery,
			Address:         b.str("currency.address", t.Currency.Address),
			TransactionFrom: b.str("transaction.feePayer", t.Transaction.FeePayer),
			Sender:          b.str("sender.address", t.Sender.Address),
			Recipient:       b.str("receiver.address", t.Receiver.Address),
			TxHash:          b.str("transaction.signature", t.Transaction.Signature),
			Amount:          b.amount("amount", t.Amount, qc.Facilitator.Token.Decimals),
			BlockTimestamp:  b.timestamp("block.timestamp.time", t.Block.Timestamp.Time),
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
