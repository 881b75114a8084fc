package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// BitqueryEVM queries the Bitquery v2 streaming API for EVM token transfers
type BitqueryEVM struct{}

var _ Provider = BitqueryEVM{}

func (BitqueryEVM) Name() entities.Provider {
	return entities.ProviderBitquery
}

func (BitqueryEVM) BuildQuery(q Query, qc QueryContext) (string, error) {
	if qc.Network == "" {
		return "", fmt.Errorf("network is required")
	}
	if q.PageSize <= 0 {
		return "", fmt.Errorf("page size must be positive")
	}

	limit := fmt.Sprintf("{count: %d}", q.PageSize)
	if q.Offset > 0 {
		limit = fmt.Sprintf("{count: %d, offset: %d}", q.PageSize, q.Offset)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "{\n  EVM(network: %s, dataset: combined) {\n", qc.Network)
	b.WriteString("    Transfers(\n")
	fmt.Fprintf(&b, "      limit: %s\n", limit)
	b.WriteString("      where: {\n")
	fmt.Fprintf(&b, "        Transaction: {From: {in: %s}}\n", quoteList(q.Addresses))
	fmt.Fprintf(&b, "        Block: {Time: {since: %q, before: %q}}\n", formatTime(q.Range.Start), formatTime(q.Range.End))
	fmt.Fprintf(&b, "        Transfer: {Currency: {SmartContract: {is: %q}}}\n", qc.Facilitator.Token.Address)
	b.WriteString("      }\n")
	b.WriteString("      orderBy: {descending: Block_Time}\n")
	b.WriteString("    ) {\n")
	b.WriteString("      Transfer { Amount Sender Receiver Currency { SmartContract } }\n")
	b.WriteString("      Block { Time }\n")
	b.WriteString("      Transaction { Hash From }\n")
	b.WriteString("    }\n  }\n}\n")
	return b.String(), nil
}

type evmTransfersData struct {
	EVM *struct {
		Transfers []evmTransfer `json:"Transfers"`
	} `json:"EVM"`
}

type evmTransfer struct {
	Transfer struct {
		Amount   *decimal.Decimal `json:"Amount"`
		Sender   string           `json:"Sender"`
		Receiver string           `json:"Receiver"`
		Currency struct {
			SmartContract string `json:"SmartContract"`
		} `json:"Currency"`
	} `json:"Transfer"`
	Block struct {
		Time string `json:"Time"`
	} `json:"Block"`
	Transaction struct {
		Hash string `json:"Hash"`
		From string `json:"From"`
	} `json:"Transaction"`
}

func (BitqueryEVM) TransformResponse(raw json.RawMessage, qc QueryContext) ([]entities.TransferEvent, error) {
	var data evmTransfersData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &domain.MalformedResponseError{Field: "EVM.Transfers", Err: err}
	}
	if data.EVM == nil {
		return nil, &domain.MalformedResponseError{Field: "EVM"}
	}

	events := make([]entities.TransferEvent, 0, len(data.EVM.Transfers))
	for i, t := range data.EVM.Transfers {
		b := rowBuilder{index: i}
		ev := entities.TransferEvent{
			Chain:           qc.Chain,
			Provider:        entities.ProviderBitquery,
			Address:         normalizeAddress(qc.Chain, b.str("Transfer.Currency.SmartContract", t.Transfer.Currency.SmartContract)),
			TransactionFrom: normalizeAddress(qc.Chain, b.str("Transaction.From", t.Transaction.From)),
			Sender:          normalizeAddress(qc.Chain, b.str("Transfer.Sender", t.Transfer.Sender)),
			Recipient:       normalizeAddress(qc.Chain, b.str("Transfer.Receiver", t.Transfer.Receiver)),
			TxHash:          strings.ToLower(b.str("Transaction.Hash", t.Transaction.Hash)),
			Amount:          b.amount("Transfer.Amount", t.Transfer.Amount, qc.Facilitator.Token.Decimals),
			BlockTimestamp:  b.timestamp("Block.Time", t.Block.Time),
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

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
