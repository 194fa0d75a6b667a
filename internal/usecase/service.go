package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weather-agent/internal/domain"
	"weather-agent/internal/ledger"
	"weather-agent/internal/sink"
	"weather-agent/internal/trigger"
)

const defaultMaxTurns = 50

// SessionStore persists session snapshots. SaveSession must fail with
// domain.ErrVersionConflict when state.Version no longer matches the stored one.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (domain.SessionState, error)
	SaveSession(ctx context.Context, state domain.SessionState) error
}

// Service runs weather lookups for stateless callers: every call loads the
// session snapshot, applies the event and writes the snapshot back.
type Service struct {
	store    SessionStore
	filter   *trigger.Filter
	pipeline *Pipeline
	logger   *zap.Logger
	maxTurns int
}

type IngestInput struct {
	SessionID string
	Turns     []domain.ConversationTurn
}

type IngestOutput struct {
	SessionID              string
	TriggeredInteractionID string
	Result                 domain.Result
}

type ResultOutput struct {
	SessionID string
	Result    domain.Result
}

func NewService(store SessionStore, filter *trigger.Filter, pipeline *Pipeline, logger *zap.Logger, maxTurns int) (*Service, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if filter == nil {
		return nil, errors.New("usecase: trigger filter must not be nil")
	}
	if pipeline == nil {
		return nil, errors.New("usecase: pipeline must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Service{
		store:    store,
		filter:   filter,
		pipeline: pipeline,
		logger:   logger,
		maxTurns: maxTurns,
	}, nil
}

// Ingest feeds the current conversation history to the session and waits for
// any lookup it starts.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (IngestOutput, error) {
	if len(in.Turns) == 0 {
		return IngestOutput{}, newError(ErrorInvalidInput, "empty_turns", nil)
	}
	if len(in.Turns) > s.maxTurns {
		return IngestOutput{}, newError(ErrorInvalidInput, "too_many_turns", nil)
	}
	for _, turn := range in.Turns {
		if strings.TrimSpace(turn.InteractionID) == "" {
			return IngestOutput{}, newError(ErrorInvalidInput, "missing_interaction_id", nil)
		}
	}

	sessionID := strings.TrimSpace(in.SessionID)
	state := domain.SessionState{SessionID: sessionID}
	if sessionID == "" {
		sessionID = newUUID()
		state.SessionID = sessionID
	} else {
		loaded, err := s.store.GetSession(ctx, sessionID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
		case err != nil:
			return IngestOutput{}, newError(ErrorInternal, "dynamodb_read_error", err)
		default:
			state = loaded
		}
	}

	session, err := s.session(state)
	if err != nil {
		return IngestOutput{}, newError(ErrorInternal, "session_init_error", err)
	}
	turn, started := session.OnHistoryChanged(ctx, in.Turns)
	session.Wait()

	out := IngestOutput{SessionID: sessionID, Result: session.Sink().Snapshot()}
	if started {
		out.TriggeredInteractionID = turn.InteractionID
	}
	if !started && state.Version > 0 {
		return out, nil
	}

	next := session.State()
	next.Version = state.Version
	if err := s.save(ctx, next); err != nil {
		return IngestOutput{}, err
	}
	return out, nil
}

// Reset clears the session's ledger so earlier turns can trigger again.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	state.Handled = nil
	s.logger.Info("weather ledger cleared", zap.String("session", state.SessionID))
	return s.save(ctx, state)
}

// Result returns the latest resolved place and forecast.
func (s *Service) Result(ctx context.Context, sessionID string) (ResultOutput, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return ResultOutput{}, err
	}
	return ResultOutput{SessionID: state.SessionID, Result: state.Result}, nil
}

func (s *Service) session(state domain.SessionState) (*Session, error) {
	return NewSession(SessionConfig{
		ID:       state.SessionID,
		Filter:   s.filter,
		Pipeline: s.pipeline,
		Ledger:   ledger.New(state.Handled...),
		Sink:     sink.New(state.Result),
		Logger:   s.logger,
	})
}

func (s *Service) load(ctx context.Context, sessionID string) (domain.SessionState, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.SessionState{}, newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	state, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.SessionState{}, newError(ErrorNotFound, "session_not_found", err)
	}
	if err != nil {
		return domain.SessionState{}, newError(ErrorInternal, "dynamodb_read_error", err)
	}
	return state, nil
}

func (s *Service) save(ctx context.Context, state domain.SessionState) error {
	err := s.store.SaveSession(ctx, state)
	if errors.Is(err, domain.ErrVersionConflict) {
		return newError(ErrorConflict, "session_version_conflict", err)
	}
	if err != nil {
		return newError(ErrorInternal, "dynamodb_write_error", err)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
