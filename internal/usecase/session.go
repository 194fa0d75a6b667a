package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"weather-agent/internal/domain"
	"weather-agent/internal/ledger"
	"weather-agent/internal/sink"
	"weather-agent/internal/trigger"
)

type SessionConfig struct {
	ID       string
	Filter   *trigger.Filter
	Pipeline *Pipeline
	Ledger   *ledger.Ledger
	Sink     *sink.Sink
	Logger   *zap.Logger
}

// Session watches one conversation and starts weather lookups for it.
// Lookup chains run on their own goroutines and share the session's ledger
// and sink.
type Session struct {
	id       string
	filter   *trigger.Filter
	pipeline *Pipeline
	ledger   *ledger.Ledger
	sink     *sink.Sink
	logger   *zap.Logger

	chains sync.WaitGroup
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Filter == nil {
		return nil, errors.New("usecase: trigger filter must not be nil")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("usecase: pipeline must not be nil")
	}
	if cfg.Ledger == nil {
		cfg.Ledger = ledger.New()
	}
	if cfg.Sink == nil {
		cfg.Sink = sink.New(domain.Result{})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("session", cfg.ID))
	return &Session{
		id:       cfg.ID,
		filter:   cfg.Filter,
		pipeline: cfg.Pipeline.withLogger(logger),
		ledger:   cfg.Ledger,
		sink:     cfg.Sink,
		logger:   logger,
	}, nil
}

// claimView lets the filter skip interactions that are completed or still in flight.
type claimView struct{ l *ledger.Ledger }

func (v claimView) Contains(id string) bool { return v.l.Claimed(id) }

// claimRecorder completes only the chain's own claim. A chain that outlived a
// Reset leaves the cleared ledger untouched.
type claimRecorder struct {
	l *ledger.Ledger
	c ledger.Claim
}

func (r claimRecorder) Add(string) { r.l.Complete(r.c) }

// OnHistoryChanged selects at most one qualifying turn and starts a lookup
// chain for it. The chain outlives ctx's cancellation; it ends when the last
// response arrives or the HTTP client times out.
func (s *Session) OnHistoryChanged(ctx context.Context, turns []domain.ConversationTurn) (domain.ConversationTurn, bool) {
	turn, ok := s.filter.Select(turns, claimView{s.ledger})
	if !ok {
		return domain.ConversationTurn{}, false
	}
	claim, ok := s.ledger.Claim(turn.InteractionID)
	if !ok {
		return domain.ConversationTurn{}, false
	}

	s.logger.Debug("weather lookup started", zap.String("interaction", turn.InteractionID))
	chainCtx := context.WithoutCancel(ctx)
	s.chains.Add(1)
	go func() {
		defer s.chains.Done()
		// no-op once the place resolved; frees the turn for another try otherwise
		defer s.ledger.Release(claim)
		_, _ = s.pipeline.Run(chainCtx, turn, claimRecorder{l: s.ledger, c: claim}, s.sink)
	}()
	return turn, true
}

// OnStateChanged resets the session when the conversation (re)connects.
func (s *Session) OnStateChanged(state domain.ConnectionState) {
	if state != domain.StateConnected {
		return
	}
	s.Reset()
}

// Reset forgets every handled interaction. The last result is kept.
func (s *Session) Reset() {
	s.ledger.Clear()
	s.logger.Info("weather ledger cleared")
}

// Wait blocks until every chain started so far has finished.
func (s *Session) Wait() {
	s.chains.Wait()
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Session) Sink() *sink.Sink {
	return s.sink
}

// State snapshots the ledger and sink. Version is left for the caller.
func (s *Session) State() domain.SessionState {
	return domain.SessionState{
		SessionID: s.id,
		Handled:   s.ledger.IDs(),
		Result:    s.sink.Snapshot(),
	}
}
