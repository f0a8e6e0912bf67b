package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type LedgerRestHandler struct {
	txUC        *usecase.TransactionUsecase
	feeUC       *usecase.FeeCalculator
	balanceUC   *usecase.BalanceReconstructor
	analyticsUC *usecase.AnalyticsUsecase
	accounts    repository.AccountRepository
	movements   repository.MovementRepository
	rates       repository.RateRepository
	motifRules  repository.MotifRuleRepository
}

func NewLedgerRestHandler(
	txUC *usecase.TransactionUsecase,
	feeUC *usecase.FeeCalculator,
	balanceUC *usecase.BalanceReconstructor,
	analyticsUC *usecase.AnalyticsUsecase,
	accounts repository.AccountRepository,
	movements repository.MovementRepository,
	rates repository.RateRepository,
	motifRules repository.MotifRuleRepository,
) *LedgerRestHandler {
	return &LedgerRestHandler{
		txUC:        txUC,
		feeUC:       feeUC,
		balanceUC:   balanceUC,
		analyticsUC: analyticsUC,
		accounts:    accounts,
		movements:   movements,
		rates:       rates,
		motifRules:  motifRules,
	}
}

func (h *LedgerRestHandler) registerRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Post("/transactions/compute", h.ComputeTransaction)
		r.Post("/transactions", h.CommitTransaction)

		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Delete("/accounts/{id}", h.DeactivateAccount)
		r.Get("/accounts/{id}/balance", h.GetBalance)
		r.Get("/accounts/{id}/series", h.GetBalanceSeries)
		r.Get("/accounts/{id}/trend", h.GetTrend)
		r.Get("/accounts/{id}/sparkline", h.GetSparkline)

		r.Get("/movements", h.ListMovements)
		r.Get("/movements/stats", h.GetMovementStats)

		r.Get("/rates", h.GetRates)
		r.Post("/rates", h.UpsertRates)
		r.Get("/rates/history", h.GetRateHistory)

		r.Get("/motifs", h.ListMotifRules)
		r.Put("/motifs/{motif}", h.UpsertMotifRule)
	})
}

func (h *LedgerRestHandler) ComputeTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.txUC.ComputeTransaction(r.Context(), &req)
	if err != nil {
		h.transactionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *LedgerRestHandler) CommitTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.txUC.CommitTransaction(r.Context(), &req)
	if err != nil {
		h.transactionError(w, err)
		return
	}
	if tx.Status == domain.TransactionRejected {
		writeErrorData(w, http.StatusUnprocessableEntity, tx.Rejection.Message, tx)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *LedgerRestHandler) transactionError(w http.ResponseWriter, err error) {
	if vErr, ok := domain.AsValidationError(err); ok {
		writeErrorData(w, http.StatusUnprocessableEntity, vErr.Message, vErr)
		return
	}
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRateUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type accountJSON struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Currency    string `json:"currency"`
	CreditLimit string `json:"credit_limit"`
}

func (h *LedgerRestHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in accountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !domain.IsSupportedCurrency(in.Currency) {
		writeError(w, http.StatusBadRequest, "unsupported currency: "+in.Currency)
		return
	}

	creditLimit := decimal.Zero
	if in.CreditLimit != "" {
		var err error
		creditLimit, err = decimal.NewFromString(in.CreditLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid credit limit")
			return
		}
	}

	account, err := h.accounts.Create(r.Context(), &domain.AccountCreate{
		Name:        in.Name,
		Kind:        domain.AccountKind(in.Kind),
		Currency:    in.Currency,
		CreditLimit: creditLimit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *LedgerRestHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	accounts, err := h.accounts.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *LedgerRestHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get account: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	err := h.accounts.Deactivate(r.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to deactivate account: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *LedgerRestHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get account: "+err.Error())
		return
	}

	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be RFC3339")
			return
		}
	}

	state, err := h.balanceUC.StateAsOf(r.Context(), account, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reconstruct balance: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *LedgerRestHandler) GetBalanceSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
	}

	points, err := h.balanceUC.Series(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build series: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *LedgerRestHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	trend, err := h.analyticsUC.Trend(r.Context(), id, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute trend: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (h *LedgerRestHandler) GetSparkline(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	points, err := h.analyticsUC.DailyNetFlow(r.Context(), id, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build sparkline: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *LedgerRestHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.movementFilter(w, r)
	if !ok {
		return
	}

	movements, total, err := h.movements.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list movements: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
	})
}

func (h *LedgerRestHandler) GetMovementStats(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.movementFilter(w, r)
	if !ok {
		return
	}

	stats, err := h.analyticsUC.Stats(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate movements: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LedgerRestHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	var err error
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be RFC3339")
			return
		}
	}

	table, err := h.rates.RatesAsOf(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve rates: "+err.Error())
		return
	}
	snapshot, ok := table.Snapshot()
	if !ok {
		writeError(w, http.StatusConflict, "incomplete rate table as of "+asOf.Format(time.RFC3339))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type rateJSON struct {
	BaseCurrency  string    `json:"base_currency"`
	QuoteCurrency string    `json:"quote_currency"`
	Rate          string    `json:"rate"`
	AsOf          time.Time `json:"as_of"`
}

func (h *LedgerRestHandler) UpsertRates(w http.ResponseWriter, r *http.Request) {
	var in []rateJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates := make([]*domain.FXRate, 0, len(in))
	for _, q := range in {
		if !domain.IsSupportedCurrency(q.BaseCurrency) || !domain.IsSupportedCurrency(q.QuoteCurrency) {
			writeError(w, http.StatusBadRequest, "unsupported currency pair "+q.BaseCurrency+"/"+q.QuoteCurrency)
			return
		}
		rate, err := decimal.NewFromString(q.Rate)
		if err != nil || !rate.IsPositive() {
			writeError(w, http.StatusBadRequest, "rate must be a positive decimal")
			return
		}
		asOf := q.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		rates = append(rates, &domain.FXRate{
			BaseCurrency:  q.BaseCurrency,
			QuoteCurrency: q.QuoteCurrency,
			Rate:          rate,
			AsOf:          asOf,
		})
	}

	if err := h.rates.UpsertRates(r.Context(), rates); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upsert rates: "+err.Error())
		return
	}
	log.WithField("count", len(rates)).Info("fx rates updated")
	writeJSON(w, http.StatusOK, nil)
}

func (h *LedgerRestHandler) GetRateHistory(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	quote := r.URL.Query().Get("quote")
	if !domain.IsSupportedCurrency(base) || !domain.IsSupportedCurrency(quote) {
		writeError(w, http.StatusBadRequest, "base and quote must be supported currencies")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.rates.ListHistory(r.Context(), base, quote, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rate history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *LedgerRestHandler) ListMotifRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.motifRules.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list motif rules: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type motifRuleJSON struct {
	FeeKind  string  `json:"fee_kind"`
	FeeBps   int64   `json:"fee_bps"`
	FeeValue string  `json:"fee_value"`
	MinFee   *string `json:"min_fee"`
	MaxFee   *string `json:"max_fee"`
	CostBps  int64   `json:"cost_bps"`
}

func (h *LedgerRestHandler) UpsertMotifRule(w http.ResponseWriter, r *http.Request) {
	motif := domain.NormalizeMotif(chi.URLParam(r, "motif"))
	if motif == "" {
		writeError(w, http.StatusBadRequest, "motif is required")
		return
	}

	var in motifRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule := &domain.MotifRule{
		Motif:   motif,
		FeeKind: domain.FeeKind(in.FeeKind),
		FeeBps:  in.FeeBps,
		CostBps: in.CostBps,
	}
	switch rule.FeeKind {
	case domain.FeePercent, domain.FeeFlat:
	default:
		writeError(w, http.StatusBadRequest, "fee_kind must be percent or flat")
		return
	}
	if in.FeeValue != "" {
		v, err := decimal.NewFromString(in.FeeValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid fee value")
			return
		}
		rule.FeeValue = v
	}
	if in.MinFee != nil {
		v, err := decimal.NewFromString(*in.MinFee)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min fee")
			return
		}
		rule.MinFee = &v
	}
	if in.MaxFee != nil {
		v, err := decimal.NewFromString(*in.MaxFee)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max fee")
			return
		}
		rule.MaxFee = &v
	}

	if err := h.motifRules.Upsert(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upsert motif rule: "+err.Error())
		return
	}
	h.feeUC.InvalidateRule(r.Context(), motif)
	writeJSON(w, http.StatusOK, rule)
}

func (h *LedgerRestHandler) accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *LedgerRestHandler) movementFilter(w http.ResponseWriter, r *http.Request) (domain.MovementFilter, bool) {
	var filter domain.MovementFilter
	q := r.URL.Query()

	if raw := q.Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid account id")
			return filter, false
		}
		filter.AccountID = &id
	}
	if raw := q.Get("type"); raw != "" {
		t := domain.MovementType(raw)
		if t != domain.MovementCredit && t != domain.MovementDebit {
			writeError(w, http.StatusBadRequest, "type must be credit or debit")
			return filter, false
		}
		filter.Type = &t
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return filter, false
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return filter, false
		}
		filter.To = &t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	return filter, true
}

// Start mounts the routes behind the standard middleware chain and blocks
// serving HTTP.
func (h *LedgerRestHandler) Start(addr string) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h.registerRoutes(r)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	log.Infof("Ledger REST service running on %s", addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("failed to start server: %v", err)
	}
}
