package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/pkg/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	EventTransactionCommitted = "transaction.committed"
	EventTransactionRejected  = "transaction.rejected"
)

// EventPublisher receives transaction lifecycle events. Publishing is
// best-effort; a failed publish never rolls back a committed movement.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, eventType string, tx *domain.Transaction) error
}

// TransactionUsecase turns caller requests into computed drafts and, on
// commit, into exactly one immutable ledger movement. Commits against the
// same account are serialized so the funds check and the append are atomic
// with respect to each other.
type TransactionUsecase struct {
	accounts  repository.AccountRepository
	movements repository.MovementRepository
	rates     repository.RateRepository
	fees      *FeeCalculator
	balances  *BalanceReconstructor
	gate      *ValidationGate
	converter *FXConverter
	refs      *utils.ReferenceCodeGenerator
	publisher EventPublisher
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewTransactionUsecase(
	accounts repository.AccountRepository,
	movements repository.MovementRepository,
	rates repository.RateRepository,
	fees *FeeCalculator,
	balances *BalanceReconstructor,
	gate *ValidationGate,
	converter *FXConverter,
	refs *utils.ReferenceCodeGenerator,
	publisher EventPublisher,
) *TransactionUsecase {
	return &TransactionUsecase{
		accounts:  accounts,
		movements: movements,
		rates:     rates,
		fees:      fees,
		balances:  balances,
		gate:      gate,
		converter: converter,
		refs:      refs,
		publisher: publisher,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (u *TransactionUsecase) accountLock(id uuid.UUID) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[id]
	if !ok {
		l = &sync.Mutex{}
		u.locks[id] = l
	}
	return l
}

func (u *TransactionUsecase) occurredAt(req *domain.TransactionRequest) time.Time {
	if req.OccurredAt.IsZero() {
		return u.now()
	}
	return req.OccurredAt
}

// ComputeTransaction prices a candidate without touching the ledger. The
// returned draft carries fee, profit, the settlement leg and the frozen rate
// snapshot; amount and motif failures come back as *domain.ValidationError.
func (u *TransactionUsecase) ComputeTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	occurredAt := u.occurredAt(req)

	breakdown, err := u.fees.Compute(ctx, req.Amount, req.Currency, req.Motif, occurredAt)
	if err != nil {
		return nil, err
	}

	return u.buildTransaction(req, breakdown, occurredAt, domain.TransactionDraft), nil
}

// CommitTransaction validates and, if the gate passes, appends the single
// movement this transaction produces. A rejected transaction is returned
// with status rejected and the failing rule attached; only operational
// failures return an error. A successful append is irrevocable, so the
// funds recheck and the append run under the account's commit lock.
func (u *TransactionUsecase) CommitTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	account, err := u.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	occurredAt := u.occurredAt(req)
	table, err := u.rates.RatesAsOf(ctx, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rate table: %w", err)
	}

	breakdown, err := u.fees.ComputeWithTable(ctx, req.Amount, req.Currency, req.Motif, table)
	if vErr, ok := domain.AsValidationError(err); ok {
		return u.reject(ctx, req, occurredAt, vErr), nil
	}
	if err != nil {
		return nil, err
	}

	lock := u.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// The funds check folds everything up to the commit moment, not just up
	// to a backdated occurred-at, so a concurrent commit that just landed is
	// always visible here.
	balanceAt := u.now()
	if occurredAt.After(balanceAt) {
		balanceAt = occurredAt
	}
	balance, err := u.balances.BalanceAsOf(ctx, account.ID, balanceAt)
	if err != nil {
		return nil, err
	}

	if vErr := u.gate.Validate(ValidationInput{
		Request:   *req,
		Rule:      breakdown.Rule,
		Account:   account,
		Balance:   balance,
		Table:     table,
		FeeAmount: breakdown.Fee,
	}); vErr != nil {
		return u.reject(ctx, req, occurredAt, vErr), nil
	}

	tx := u.buildTransaction(req, breakdown, occurredAt, domain.TransactionCommitted)
	tx.ReferenceCode = u.refs.Next()

	amount := req.Amount
	if req.Currency != account.Currency {
		amount, err = u.converter.Convert(req.Amount, req.Currency, account.Currency, table)
		if err != nil {
			return nil, err
		}
	}

	movement := &domain.Movement{
		AccountID:  account.ID,
		Type:       req.Type.MovementType(),
		Amount:     amount,
		Currency:   account.Currency,
		OccurredAt: occurredAt,
		CauseRef:   &tx.ID,
	}
	if _, err := u.movements.Append(ctx, movement); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	log.WithFields(log.Fields{
		"transaction_id": tx.ID,
		"account_id":     account.ID,
		"type":           tx.Type,
		"amount":         tx.Amount.String(),
		"currency":       tx.Currency,
		"motif":          tx.Motif,
		"fee":            tx.FeeAmount.String(),
		"reference":      tx.ReferenceCode,
	}).Info("transaction committed")

	u.publish(ctx, EventTransactionCommitted, tx)
	return tx, nil
}

func (u *TransactionUsecase) buildTransaction(req *domain.TransactionRequest, b *domain.FeeBreakdown, occurredAt time.Time, status domain.TransactionStatus) *domain.Transaction {
	return &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       req.AccountID,
		Type:            req.Type,
		Status:          status,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Motif:           domain.NormalizeMotif(req.Motif),
		FeeAmount:       b.Fee,
		ProfitAmount:    b.Profit,
		ConvertedAmount: b.ConvertedAmount,
		RateSnapshot:    b.Snapshot,
		OccurredAt:      occurredAt,
		CreatedAt:       u.now(),
	}
}

func (u *TransactionUsecase) reject(ctx context.Context, req *domain.TransactionRequest, occurredAt time.Time, vErr *domain.ValidationError) *domain.Transaction {
	tx := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  req.AccountID,
		Type:       req.Type,
		Status:     domain.TransactionRejected,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Motif:      domain.NormalizeMotif(req.Motif),
		OccurredAt: occurredAt,
		CreatedAt:  u.now(),
		Rejection:  vErr,
	}

	log.WithFields(log.Fields{
		"transaction_id": tx.ID,
		"account_id":     req.AccountID,
		"code":           vErr.Code,
		"field":          vErr.Field,
	}).Warn("transaction rejected")

	u.publish(ctx, EventTransactionRejected, tx)
	return tx
}

func (u *TransactionUsecase) publish(ctx context.Context, eventType string, tx *domain.Transaction) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.PublishTransaction(ctx, eventType, tx); err != nil {
		log.WithError(err).WithField("transaction_id", tx.ID).Warn("event publish failed")
	}
}
