package raffleservice

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	raffledb "github.com/lucky-stack/raffle-bot/app/modules/raffle/infrastructure/repositories"
	"github.com/lucky-stack/raffle-bot/app/shared/eventbus"
)

// FakeRaffleRepo is a hand-written fake for the raffle repository. Override
// behavior per test with the Func fields; calls are recorded in trace.
type FakeRaffleRepo struct {
	GetRoundFunc        func(ctx context.Context, db bun.IDB) (*raffledb.RoundRecord, error)
	SaveRoundFunc       func(ctx context.Context, db bun.IDB, record *raffledb.RoundRecord) error
	UpsertWinnerFunc    func(ctx context.Context, db bun.IDB, record *raffledb.WinnerRecord) error
	GetRecentWinnerFunc func(ctx context.Context, db bun.IDB) (*raffledb.WinnerRecord, error)

	trace        []string
	SavedRounds  []*raffledb.RoundRecord
	SavedWinners []*raffledb.WinnerRecord
}

var _ raffledb.Repository = (*FakeRaffleRepo)(nil)

func (f *FakeRaffleRepo) GetRound(ctx context.Context, db bun.IDB) (*raffledb.RoundRecord, error) {
	f.trace = append(f.trace, "GetRound")
	if f.GetRoundFunc != nil {
		return f.GetRoundFunc(ctx, db)
	}
	return nil, raffledb.ErrNotFound
}

func (f *FakeRaffleRepo) SaveRound(ctx context.Context, db bun.IDB, record *raffledb.RoundRecord) error {
	f.trace = append(f.trace, "SaveRound")
	f.SavedRounds = append(f.SavedRounds, record)
	if f.SaveRoundFunc != nil {
		return f.SaveRoundFunc(ctx, db, record)
	}
	return nil
}

func (f *FakeRaffleRepo) UpsertWinner(ctx context.Context, db bun.IDB, record *raffledb.WinnerRecord) error {
	f.trace = append(f.trace, "UpsertWinner")
	f.SavedWinners = append(f.SavedWinners, record)
	if f.UpsertWinnerFunc != nil {
		return f.UpsertWinnerFunc(ctx, db, record)
	}
	return nil
}

func (f *FakeRaffleRepo) GetRecentWinner(ctx context.Context, db bun.IDB) (*raffledb.WinnerRecord, error) {
	f.trace = append(f.trace, "GetRecentWinner")
	if f.GetRecentWinnerFunc != nil {
		return f.GetRecentWinnerFunc(ctx, db)
	}
	return nil, raffledb.ErrNotFound
}

// FakeEventBus records published messages by topic.
type FakeEventBus struct {
	PublishFunc func(topic string, messages ...*message.Message) error

	Published map[string][]*message.Message
}

var _ eventbus.EventBus = (*FakeEventBus)(nil)

func NewFakeEventBus() *FakeEventBus {
	return &FakeEventBus{Published: make(map[string][]*message.Message)}
}

func (f *FakeEventBus) Publish(topic string, messages ...*message.Message) error {
	if f.Published == nil {
		f.Published = make(map[string][]*message.Message)
	}
	f.Published[topic] = append(f.Published[topic], messages...)
	if f.PublishFunc != nil {
		return f.PublishFunc(topic, messages...)
	}
	return nil
}

func (f *FakeEventBus) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (f *FakeEventBus) CreateStream(_ context.Context, _ string, _ []string) error {
	return nil
}

func (f *FakeEventBus) Close() error { return nil }
