package hrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/usecase"
	"ledger-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (chi.Router, repository.AccountRepository) {
	t.Helper()
	ctx := context.Background()

	accounts := repository.NewMemoryAccountRepo()
	movements := repository.NewMemoryMovementRepo()
	rates := repository.NewMemoryRateRepo()
	rules := repository.NewMemoryMotifRuleRepo()

	require.NoError(t, rates.UpsertRates(ctx, domain.DefaultFXRates(time.Now().Add(-time.Hour))))
	for _, rule := range domain.DefaultMotifRules() {
		require.NoError(t, rules.Upsert(ctx, rule))
	}

	converter := usecase.NewFXConverter()
	feeUC := usecase.NewFeeCalculator(rules, rates, converter, nil)
	balanceUC := usecase.NewBalanceReconstructor(movements)
	analyticsUC := usecase.NewAnalyticsUsecase(movements, balanceUC)
	txUC := usecase.NewTransactionUsecase(
		accounts,
		movements,
		rates,
		feeUC,
		balanceUC,
		usecase.NewValidationGate(converter),
		converter,
		utils.NewReferenceCodeGenerator("TXN-"),
		nil,
	)

	h := NewLedgerRestHandler(txUC, feeUC, balanceUC, analyticsUC, accounts, movements, rates, rules)
	r := chi.NewRouter()
	h.registerRoutes(r)
	return r, accounts
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}

func createAccount(t *testing.T, r http.Handler, currency string) *domain.Account {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/ledger/accounts", map[string]string{
		"name":     "Caisse Test",
		"kind":     "cash",
		"currency": currency,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account domain.Account
	decodeData(t, rec, &account)
	return &account
}

func TestCreateAccountValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/ledger/accounts", map[string]string{
		"name":     "Caisse",
		"currency": "EUR",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/ledger/accounts", map[string]string{
		"currency": domain.CurrencyUSD,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitTransactionEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	account := createAccount(t, r, domain.CurrencyUSD)

	rec := doJSON(t, r, http.MethodPost, "/ledger/transactions", map[string]interface{}{
		"account_id": account.ID,
		"type":       "revenue",
		"amount":     "100",
		"currency":   domain.CurrencyUSD,
		"motif":      "transfert",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tx domain.Transaction
	decodeData(t, rec, &tx)
	assert.Equal(t, domain.TransactionCommitted, tx.Status)
	assert.Equal(t, "5", tx.FeeAmount.String())
	assert.NotEmpty(t, tx.ReferenceCode)
}

func TestCommitRejectionReturns422(t *testing.T) {
	r, _ := newTestRouter(t)
	account := createAccount(t, r, domain.CurrencyUSD)

	rec := doJSON(t, r, http.MethodPost, "/ledger/transactions", map[string]interface{}{
		"account_id": account.ID,
		"type":       "expense",
		"amount":     "80",
		"currency":   domain.CurrencyUSD,
		"motif":      "transfert",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var tx domain.Transaction
	decodeData(t, rec, &tx)
	assert.Equal(t, domain.TransactionRejected, tx.Status)
	require.NotNil(t, tx.Rejection)
	assert.Equal(t, domain.CodeInsufficientFunds, tx.Rejection.Code)
}

func TestComputeEndpointLeavesNoTrace(t *testing.T) {
	r, _ := newTestRouter(t)
	account := createAccount(t, r, domain.CurrencyUSD)

	rec := doJSON(t, r, http.MethodPost, "/ledger/transactions/compute", map[string]interface{}{
		"account_id": account.ID,
		"type":       "expense",
		"amount":     "1000",
		"currency":   domain.CurrencyUSD,
		"motif":      "commande",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tx domain.Transaction
	decodeData(t, rec, &tx)
	assert.Equal(t, domain.TransactionDraft, tx.Status)
	assert.Equal(t, "100", tx.FeeAmount.String())

	// The draft must not have moved any money.
	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/ledger/accounts/%s/balance", account.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state domain.AccountState
	decodeData(t, rec, &state)
	assert.True(t, state.Balance.IsZero())
}

func TestBalanceEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	account := createAccount(t, r, domain.CurrencyUSD)

	rec := doJSON(t, r, http.MethodPost, "/ledger/transactions", map[string]interface{}{
		"account_id": account.ID,
		"type":       "revenue",
		"amount":     "250",
		"currency":   domain.CurrencyUSD,
		"motif":      "approvisionnement",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/ledger/accounts/%s/balance", account.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state domain.AccountState
	decodeData(t, rec, &state)
	assert.Equal(t, "250", state.Balance.String())
	assert.Equal(t, domain.CurrencyUSD, state.Currency)
}

func TestSparklineEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	account := createAccount(t, r, domain.CurrencyUSD)

	rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/ledger/accounts/%s/sparkline?days=14", account.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var points []domain.SparklinePoint
	decodeData(t, rec, &points)
	assert.Len(t, points, 14)
}

func TestUnknownAccountReturns404(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/ledger/accounts/00000000-0000-0000-0000-000000000001/balance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/ledger/accounts/not-a-uuid/balance", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatesEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/ledger/rates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot domain.RateSnapshot
	decodeData(t, rec, &snapshot)
	assert.Equal(t, "7.25", snapshot.UsdToCny.String())

	rec = doJSON(t, r, http.MethodPost, "/ledger/rates", []map[string]string{
		{"base_currency": "USD", "quote_currency": "CNY", "rate": "7.30"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/ledger/rates", []map[string]string{
		{"base_currency": "USD", "quote_currency": "CNY", "rate": "-1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/ledger/rates/history?base=USD&quote=CNY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.FXRate
	decodeData(t, rec, &history)
	assert.NotEmpty(t, history)
}

func TestMotifRuleEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/ledger/motifs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rules []domain.MotifRule
	decodeData(t, rec, &rules)
	assert.Len(t, rules, len(domain.DefaultMotifRules()))

	rec = doJSON(t, r, http.MethodPut, "/ledger/motifs/transfert", map[string]interface{}{
		"fee_kind": "percent",
		"fee_bps":  750,
		"cost_bps": 300,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/ledger/motifs/transfert", map[string]interface{}{
		"fee_kind": "banana",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
