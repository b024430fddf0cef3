package ledgerservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledgerdb "github.com/lucky-stack/raffle-bot/app/modules/ledger/infrastructure/repositories"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
	"github.com/lucky-stack/raffle-bot/app/shared/results"
)

// ErrInvalidAmount indicates a zero or negative transfer amount.
var ErrInvalidAmount = errors.New("transfer amount must be positive")

// Transfer kinds recorded in the journal.
const (
	kindEntry  = "entry"
	kindPayout = "payout"
	kindTopUp  = "topup"
)

// LedgerService implements the Service interface.
type LedgerService struct {
	repo       ledgerdb.Repository
	potAccount string
	logger     *slog.Logger
	metrics    observability.OperationMetrics
	tracer     trace.Tracer
	db         *bun.DB
}

// NewLedgerService creates a new LedgerService. potAccount is the account
// that holds the pooled raffle balance.
func NewLedgerService(
	repo ledgerdb.Repository,
	potAccount string,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		repo:       repo,
		potAccount: potAccount,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
	}
}

var _ Service = (*LedgerService)(nil)

// Deposit moves an entry amount from the participant into the pot.
func (s *LedgerService) Deposit(ctx context.Context, participantID string, amount int64) error {
	return s.transfer(ctx, "Deposit", participantID, s.potAccount, amount, kindEntry)
}

// Payout moves amount from the pot to the winner.
func (s *LedgerService) Payout(ctx context.Context, winnerID string, amount int64) error {
	return s.transfer(ctx, "Payout", s.potAccount, winnerID, amount, kindPayout)
}

// transfer debits from and credits to inside one transaction, journaling the
// confirmed movement. Either every step commits or none does.
func (s *LedgerService) transfer(ctx context.Context, operationName, from, to string, amount int64, kind string) error {
	transferTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
		return s.transferLogic(ctx, db, from, to, amount, kind)
	}

	result, err := withTelemetry(s, ctx, operationName, from, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(s, ctx, transferTx)
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// transferLogic contains the core logic.
func (s *LedgerService) transferLogic(ctx context.Context, db bun.IDB, from, to string, amount int64, kind string) (results.OperationResult[struct{}, error], error) {
	if amount <= 0 {
		return results.FailureResult[struct{}, error](ErrInvalidAmount), nil
	}

	if err := s.repo.Debit(ctx, db, from, amount); err != nil {
		if errors.Is(err, ledgerdb.ErrInsufficientFunds) || errors.Is(err, ledgerdb.ErrAccountNotFound) {
			return results.FailureResult[struct{}, error](err), nil
		}
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to debit %s: %w", from, err)
	}

	if err := s.repo.Credit(ctx, db, to, amount); err != nil {
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to credit %s: %w", to, err)
	}

	entry := &ledgerdb.JournalEntry{
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Kind:        kind,
	}
	if err := s.repo.InsertJournalEntry(ctx, db, entry); err != nil {
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to journal transfer: %w", err)
	}

	return results.SuccessResult[struct{}, error](struct{}{}), nil
}

// TopUp credits an account from outside the system.
func (s *LedgerService) TopUp(ctx context.Context, accountID string, amount int64) error {
	topUpTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
		if amount <= 0 {
			return results.FailureResult[struct{}, error](ErrInvalidAmount), nil
		}
		if err := s.repo.Credit(ctx, db, accountID, amount); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to credit %s: %w", accountID, err)
		}
		entry := &ledgerdb.JournalEntry{
			ToAccount: accountID,
			Amount:    amount,
			Kind:      kindTopUp,
		}
		if err := s.repo.InsertJournalEntry(ctx, db, entry); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to journal topup: %w", err)
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	}

	result, err := withTelemetry(s, ctx, "TopUp", accountID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(s, ctx, topUpTx)
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// Balance returns the current balance of an account; missing accounts read as
// zero.
func (s *LedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.repo.GetAccount(ctx, nil, accountID)
	if err != nil {
		if errors.Is(err, ledgerdb.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return account.Balance, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LedgerService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "LedgerService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "LedgerService", time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "LedgerService")
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "LedgerService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "LedgerService")
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *LedgerService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {

	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
