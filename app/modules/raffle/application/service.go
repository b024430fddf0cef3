package raffleservice

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

	raffleevents "github.com/lucky-stack/raffle-bot/app/events/raffle"
	raffledomain "github.com/lucky-stack/raffle-bot/app/modules/raffle/domain"
	raffledb "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/repositories"
	"github.com/lucky-stack/raffle-bot/app/shared/attr"
	"github.com/lucky-stack/raffle-bot/app/shared/eventbus"
	"github.com/lucky-stack/raffle-bot/app/shared/observability"
	"github.com/lucky-stack/raffle-bot/app/shared/results"
	"github.com/lucky-stack/raffle-bot/app/shared/utils"
)

// RaffleService implements the Service interface around the round state
// machine. The domain round owns all state transitions; this layer adds
// persistence, event publication, and telemetry.
type RaffleService struct {
	round    *raffledomain.Round
	repo     raffledb.Repository
	eventBus eventbus.EventBus
	helpers  utils.Helpers
	logger   *slog.Logger
	metrics  observability.OperationMetrics
	tracer   trace.Tracer
	db       *bun.DB
	now      func() time.Time
}

// NewRaffleService creates a new RaffleService.
func NewRaffleService(
	round *raffledomain.Round,
	repo raffledb.Repository,
	bus eventbus.EventBus,
	helpers utils.Helpers,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RaffleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RaffleService{
		round:    round,
		repo:     repo,
		eventBus: bus,
		helpers:  helpers,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		now:      time.Now,
	}
}

var _ Service = (*RaffleService)(nil)

// Enter adds a participant to the open round.
func (s *RaffleService) Enter(ctx context.Context, participantID string, amount int64) error {
	result, err := withTelemetry(s, ctx, "Enter", participantID, func(ctx context.Context) (results.OperationResult[raffledomain.Snapshot, error], error) {
		if err := s.round.Enter(ctx, participantID, amount); err != nil {
			if errors.Is(err, raffledomain.ErrInsufficientEntry) || errors.Is(err, raffledomain.ErrRoundNotOpen) {
				return results.FailureResult[raffledomain.Snapshot, error](err), nil
			}
			return results.OperationResult[raffledomain.Snapshot, error]{}, err
		}
		return results.SuccessResult[raffledomain.Snapshot, error](s.round.Snapshot()), nil
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}

	snap := *result.Success
	s.persistSnapshot(ctx, snap)
	s.publishEvent(ctx, raffleevents.EnteredV1, raffleevents.EnteredPayloadV1{
		ParticipantID: participantID,
		Amount:        amount,
		Participants:  len(snap.Participants),
		PotBalance:    snap.PotBalance,
	})
	return nil
}

// CheckUpkeep reports whether a draw may start right now.
func (s *RaffleService) CheckUpkeep(ctx context.Context) bool {
	eligible := s.round.Eligible(s.now())
	s.logger.DebugContext(ctx, "Upkeep check",
		attr.Bool("eligible", eligible),
		attr.String("state", string(s.round.State())),
		attr.Int("participants", s.round.ParticipantCount()),
		attr.Int64("pot_balance", s.round.PotBalance()),
	)
	return eligible
}

// PerformUpkeep starts a draw. Eligibility is re-derived inside the round
// under its lock; callers cannot smuggle in a stale check.
func (s *RaffleService) PerformUpkeep(ctx context.Context) (string, error) {
	result, err := withTelemetry(s, ctx, "PerformUpkeep", "round", func(ctx context.Context) (results.OperationResult[string, error], error) {
		requestID, err := s.round.StartDraw(ctx)
		if err != nil {
			if errors.Is(err, raffledomain.ErrUpkeepNotNeeded) {
				return results.FailureResult[string, error](err), nil
			}
			return results.OperationResult[string, error]{}, err
		}
		return results.SuccessResult[string, error](requestID), nil
	})
	if err != nil {
		return "", err
	}
	if result.IsFailure() {
		return "", *result.Failure
	}

	requestID := *result.Success
	snap := s.round.Snapshot()
	s.persistSnapshot(ctx, snap)
	s.publishEvent(ctx, raffleevents.DrawStartedV1, raffleevents.DrawStartedPayloadV1{
		RequestID:    requestID,
		Participants: len(snap.Participants),
		PotBalance:   snap.PotBalance,
		StartedAt:    s.now(),
	})
	return requestID, nil
}

// Settle consumes a randomness fulfillment. A stale or duplicate fulfillment
// returns ErrSettlementNotPending and changes nothing; a failed payout
// returns ErrPayoutTransferFailed with the round still DRAWING so the
// fulfillment can be redelivered.
func (s *RaffleService) Settle(ctx context.Context, requestID string, values []uint64) (Settlement, error) {
	result, err := withTelemetry(s, ctx, "Settle", requestID, func(ctx context.Context) (results.OperationResult[Settlement, error], error) {
		winner, amount, err := s.round.Settle(ctx, requestID, values)
		if err != nil {
			if errors.Is(err, raffledomain.ErrSettlementNotPending) {
				return results.FailureResult[Settlement, error](err), nil
			}
			return results.OperationResult[Settlement, error]{}, err
		}
		return results.SuccessResult[Settlement, error](Settlement{Winner: winner, Amount: amount}), nil
	})
	if err != nil {
		return Settlement{}, err
	}
	if result.IsFailure() {
		return Settlement{}, *result.Failure
	}

	settlement := *result.Success
	s.persistSettlement(ctx, requestID, settlement)
	s.publishEvent(ctx, raffleevents.WinnerPickedV1, raffleevents.WinnerPickedPayloadV1{
		RequestID: requestID,
		Winner:    settlement.Winner,
		Amount:    settlement.Amount,
		PickedAt:  s.now(),
	})
	return settlement, nil
}

// Status returns a copy of the current round state.
func (s *RaffleService) Status(_ context.Context) raffledomain.Snapshot {
	return s.round.Snapshot()
}

// persistSnapshot writes the round snapshot. Persistence is a recovery aid,
// not part of the round's commit; a write failure is logged and the round
// stays authoritative in memory.
func (s *RaffleService) persistSnapshot(ctx context.Context, snap raffledomain.Snapshot) {
	if s.repo == nil {
		return
	}
	record := &raffledb.RoundRecord{
		State:            string(snap.State),
		Participants:     snap.Participants,
		PotBalance:       snap.PotBalance,
		LastDrawAt:       snap.LastDrawAt,
		PendingRequestID: snap.PendingRequestID,
		RecentWinner:     snap.RecentWinner,
	}
	if err := s.repo.SaveRound(ctx, nil, record); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist round snapshot",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}
}

// persistSettlement writes the post-settlement snapshot and the winner record
// in one transaction.
func (s *RaffleService) persistSettlement(ctx context.Context, requestID string, settlement Settlement) {
	if s.repo == nil {
		return
	}

	snap := s.round.Snapshot()
	record := &raffledb.RoundRecord{
		State:            string(snap.State),
		Participants:     snap.Participants,
		PotBalance:       snap.PotBalance,
		LastDrawAt:       snap.LastDrawAt,
		PendingRequestID: snap.PendingRequestID,
		RecentWinner:     snap.RecentWinner,
	}
	winner := &raffledb.WinnerRecord{
		WinnerID:  settlement.Winner,
		Amount:    settlement.Amount,
		RequestID: requestID,
		PickedAt:  snap.LastDrawAt,
	}

	persist := func(ctx context.Context, db bun.IDB) error {
		if err := s.repo.SaveRound(ctx, db, record); err != nil {
			return err
		}
		return s.repo.UpsertWinner(ctx, db, winner)
	}

	var err error
	if s.db != nil {
		err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return persist(ctx, tx)
		})
	} else {
		err = persist(ctx, nil)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist settlement",
			attr.ExtractCorrelationID(ctx),
			attr.String("request_id", requestID),
			attr.Error(err),
		)
	}
}

// publishEvent emits a notification on the bus. Emission is fire-and-forget;
// a publish failure never rolls back the operation that triggered it.
func (s *RaffleService) publishEvent(ctx context.Context, topic string, payload any) {
	if s.eventBus == nil {
		return
	}
	msg, err := s.helpers.CreateNewMessage(payload, topic)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build event message",
			attr.String("topic", topic),
			attr.Error(err),
		)
		return
	}
	msg.SetContext(ctx)
	if err := s.eventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *RaffleService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "RaffleService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "RaffleService", time.Since(startTime))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "RaffleService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "RaffleService")
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
		s.metrics.RecordOperationSuccess(ctx, operationName, "RaffleService")
	}

	return result, nil
}
