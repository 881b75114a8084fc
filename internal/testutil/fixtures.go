package testutil

import (
	"time"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// Common test addresses
const (
	BaseUSDCAddress   = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	SolanaUSDCAddress = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	FacilitatorAddr   = "0xdbdf3d8ed80f84c35d01c6c9f9271761bad90ba6"
	OtherFacilitator  = "0xd8dfc729cbd05381647eb5540d756f4f8ad63eec"
	AliceAddress      = "0x1111111111111111111111111111111111111111"
	BobAddress        = "0x2222222222222222222222222222222222222222"
)

// CreateTestTransferEvent creates a base-chain transfer with default values
func CreateTestTransferEvent(opts ...TransferEventOption) entities.TransferEvent {
	t := entities.TransferEvent{
		ID:              1,
		Chain:           entities.ChainBase,
		Provider:        entities.ProviderBitquery,
		Address:         BaseUSDCAddress,
		TransactionFrom: FacilitatorAddr,
		Sender:          FacilitatorAddr,
		Recipient:       AliceAddress,
		Amount:          1_000_000, // 1 USDC
		BlockTimestamp:  time.Date(2025, 5, 10, 10, 30, 0, 0, time.UTC),
		TxHash:          "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Decimals:        6,
		FacilitatorID:   "coinbase",
		CreatedAt:       time.Now(),
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

type TransferEventOption func(*entities.TransferEvent)

func WithID(id int64) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.ID = id
	}
}

func WithTxHash(hash string) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.TxHash = hash
	}
}

func WithChain(chain entities.Chain) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.Chain = chain
	}
}

func WithProvider(p entities.Provider) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.Provider = p
	}
}

func WithBlockTimestamp(ts time.Time) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.BlockTimestamp = ts
	}
}

func WithRecipient(addr string) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.Recipient = addr
	}
}

func WithAmount(amount int64) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.Amount = amount
	}
}

func WithFacilitatorID(id string) TransferEventOption {
	return func(t *entities.TransferEvent) {
		t.FacilitatorID = id
	}
}

// CreateTestFacilitator creates an enabled base facilitator
func CreateTestFacilitator(opts ...FacilitatorOption) entities.Facilitator {
	f := entities.Facilitator{
		ID:      "coinbase",
		Chain:   entities.ChainBase,
		Address: FacilitatorAddr,
		Token:   entities.Token{Address: BaseUSDCAddress, Decimals: 6, Symbol: "USDC"},
		Enabled: true,
	}

	for _, opt := range opts {
		opt(&f)
	}

	return f
}

type FacilitatorOption func(*entities.Facilitator)

func FacilitatorWithID(id string) FacilitatorOption {
	return func(f *entities.Facilitator) {
		f.ID = id
	}
}

func FacilitatorWithAddress(addr string) FacilitatorOption {
	return func(f *entities.Facilitator) {
		f.Address = addr
	}
}

func FacilitatorWithStartDate(t time.Time) FacilitatorOption {
	return func(f *entities.Facilitator) {
		f.SyncStartDate = &t
	}
}

func FacilitatorDisabled() FacilitatorOption {
	return func(f *entities.Facilitator) {
		f.Enabled = false
	}
}
