package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/testutil"
)

func setupTransferHandlerTest() (*TransferHandler, *testutil.MockTransferEventRepository) {
	repo := testutil.NewMockTransferEventRepository()
	logger := zap.NewNop()

	service := services.NewTransferService(repo, nil, logger)
	return NewTransferHandler(service, logger), repo
}

func decodeTransfers(t *testing.T, rec *httptest.ResponseRecorder) services.TransferResponse {
	t.Helper()
	var response services.TransferResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestTransferHandler_GetTransfers_Success(t *testing.T) {
	handler, repo := setupTransferHandlerTest()

	repo.AddTransfers(
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x01")),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x02")),
	)

	req := httptest.NewRequest(http.MethodGet, "/transfers", nil)
	rec := httptest.NewRecorder()

	handler.GetTransfers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	response := decodeTransfers(t, rec)
	if response.Total != 2 || len(response.Transfers) != 2 {
		t.Errorf("expected 2 transfers, got total=%d len=%d", response.Total, len(response.Transfers))
	}
	if response.Transfers[0].AmountFormatted != "1" {
		t.Errorf("expected amount_formatted 1, got %s", response.Transfers[0].AmountFormatted)
	}
}

func TestTransferHandler_GetTransfers_Filters(t *testing.T) {
	handler, repo := setupTransferHandlerTest()

	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.AddTransfers(
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x01"), testutil.WithBlockTimestamp(ts)),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x02"), testutil.WithBlockTimestamp(ts.Add(time.Hour)),
			testutil.WithRecipient(testutil.BobAddress)),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x03"), testutil.WithBlockTimestamp(ts.Add(2*time.Hour)),
			testutil.WithFacilitatorID("mogami")),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("sig"), testutil.WithChain(entities.ChainSolana),
			testutil.WithProvider(entities.ProviderBigQuery), testutil.WithFacilitatorID("payAI")),
	)

	tests := []struct {
		name  string
		query string
		want  int64
	}{
		{name: "chain", query: "chain=solana", want: 1},
		{name: "chain case insensitive", query: "chain=BASE", want: 3},
		{name: "provider", query: "provider=bitquery", want: 3},
		{name: "facilitator", query: "facilitator=mogami", want: 1},
		{name: "recipient", query: "recipient=" + testutil.BobAddress, want: 1},
		{name: "time range is half-open", query: "from_time=2025-06-01T00:00:00Z&to_time=2025-06-01T01:00:00Z", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/transfers?"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetTransfers(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeTransfers(t, rec).Total; got != tt.want {
				t.Errorf("expected %d transfers, got %d", tt.want, got)
			}
		})
	}
}

func TestTransferHandler_GetTransfers_MixedCaseHexRecipient(t *testing.T) {
	handler, repo := setupTransferHandlerTest()
	repo.AddTransfers(testutil.CreateTestTransferEvent(testutil.WithRecipient(testutil.BaseUSDCAddress)))

	req := httptest.NewRequest(http.MethodGet, "/transfers?recipient=0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", nil)
	rec := httptest.NewRecorder()

	handler.GetTransfers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := decodeTransfers(t, rec).Total; got != 1 {
		t.Errorf("expected 1 transfer, got %d", got)
	}
}

func TestTransferHandler_GetTransfers_BadRequest(t *testing.T) {
	handler, _ := setupTransferHandlerTest()

	queries := []string{
		"chain=tron",
		"provider=dune",
		"sender=0x1234",
		"recipient=not-an-address",
		"from_time=yesterday",
		"to_time=2025-13-01",
		"from_time=2025-06-02T00:00:00Z&to_time=2025-06-01T00:00:00Z",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/transfers?"+q, nil)
			rec := httptest.NewRecorder()

			handler.GetTransfers(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
				t.Errorf("expected error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestTransferHandler_GetTransfers_Pagination(t *testing.T) {
	handler, repo := setupTransferHandlerTest()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		repo.AddTransfers(testutil.CreateTestTransferEvent(
			testutil.WithTxHash("0x"+strings.Repeat("a", i+1)),
			testutil.WithBlockTimestamp(base.Add(time.Duration(i)*time.Minute)),
		))
	}

	req := httptest.NewRequest(http.MethodGet, "/transfers?limit=5&offset=2", nil)
	rec := httptest.NewRecorder()

	handler.GetTransfers(rec, req)

	response := decodeTransfers(t, rec)
	if response.Limit != 5 || response.Offset != 2 {
		t.Errorf("expected limit 5 offset 2, got %d %d", response.Limit, response.Offset)
	}
	if len(response.Transfers) != 5 || !response.HasMore {
		t.Errorf("expected 5 transfers and more pages, got %d has_more=%v", len(response.Transfers), response.HasMore)
	}
}

func TestTransferHandler_GetTransfers_InvalidLimitUsesDefault(t *testing.T) {
	handler, _ := setupTransferHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/transfers?limit=5000&offset=-1", nil)
	rec := httptest.NewRecorder()

	handler.GetTransfers(rec, req)

	response := decodeTransfers(t, rec)
	if response.Limit != 100 || response.Offset != 0 {
		t.Errorf("expected defaults, got limit=%d offset=%d", response.Limit, response.Offset)
	}
}

func TestTransferHandler_GetTransfers_RepositoryError(t *testing.T) {
	handler, repo := setupTransferHandlerTest()
	repo.GetByFilterFunc = func(ctx context.Context, filter entities.TransferEventFilter) ([]entities.TransferEvent, error) {
		return nil, errors.New("connection reset")
	}

	req := httptest.NewRequest(http.MethodGet, "/transfers", nil)
	rec := httptest.NewRecorder()

	handler.GetTransfers(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestTransferHandler_GetFacilitatorTransfers(t *testing.T) {
	handler, repo := setupTransferHandlerTest()
	repo.AddTransfers(
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x01")),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x02"), testutil.WithFacilitatorID("mogami")),
	)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/facilitators/mogami/transfers", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	response := decodeTransfers(t, rec)
	if response.Total != 1 || response.Transfers[0].FacilitatorID != "mogami" {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestNormalizeAddressParam(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0xDBDF3D8ED80F84C35D01C6C9F9271761BAD90BA6", want: testutil.FacilitatorAddr},
		{in: testutil.SolanaUSDCAddress, want: testutil.SolanaUSDCAddress},
		{in: "0xabc", wantErr: true},
		{in: "0OIl", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizeAddressParam(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s: got %q, %v", tt.in, got, err)
		}
	}
}
