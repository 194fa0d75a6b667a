package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"weather-agent/internal/domain"
)

const (
	stageGeocode  = "geocode"
	stagePoints   = "points"
	stageForecast = "forecast"
)

// WeatherClient performs the three lookup round trips.
type WeatherClient interface {
	Geocode(ctx context.Context, text string) (domain.GeoResult, error)
	ForecastEndpoint(ctx context.Context, geo domain.GeoResult) (domain.ForecastEndpoint, error)
	ShortForecast(ctx context.Context, endpoint domain.ForecastEndpoint) (string, error)
}

// HandledRecorder records interactions whose place lookup succeeded.
type HandledRecorder interface {
	Add(interactionID string)
}

// ResultSink receives resolved values.
type ResultSink interface {
	SetLocation(name string)
	SetForecast(text string)
}

// Pipeline runs geocode -> points -> forecast for one conversation turn.
type Pipeline struct {
	client WeatherClient
	logger *zap.Logger
}

func NewPipeline(client WeatherClient, logger *zap.Logger) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("usecase: weather client must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, logger: logger}, nil
}

// withLogger returns a copy of p that logs through logger.
func (p *Pipeline) withLogger(logger *zap.Logger) *Pipeline {
	cp := *p
	cp.logger = logger
	return &cp
}

// Run executes the chain and returns the state it stopped in. The interaction
// is recorded in handled as soon as the place resolves, so a later failure
// still counts as the one attempt for that turn. Failures are logged and
// returned as *Error; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, turn domain.ConversationTurn, handled HandledRecorder, sink ResultSink) (domain.PipelineState, error) {
	log := p.logger.With(
		zap.String("interaction", turn.InteractionID),
		zap.String("turn", turn.ID),
	)
	state := domain.StateIdle
	transition := func(next domain.PipelineState) {
		log.Debug("weather lookup transition", zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}
	fail := func(stage string, err error) (domain.PipelineState, error) {
		stageErr := stageError(stage, err)
		log.Error("weather lookup failed",
			zap.String("stage", stage),
			zap.String("code", string(stageErr.Code)),
			zap.String("reason", stageErr.Reason),
			zap.Error(err),
		)
		transition(domain.StateFailed)
		return state, stageErr
	}

	transition(domain.StateAwaitingGeo)
	geo, err := p.client.Geocode(ctx, turn.Text)
	if err != nil {
		return fail(stageGeocode, err)
	}
	handled.Add(turn.InteractionID)
	sink.SetLocation(geo.Location)
	log.Info("place resolved",
		zap.String("location", geo.Location),
		zap.Float64("lat", geo.Latitude),
		zap.Float64("lon", geo.Longitude),
	)

	transition(domain.StateAwaitingPoint)
	endpoint, err := p.client.ForecastEndpoint(ctx, geo)
	if err != nil {
		return fail(stagePoints, err)
	}

	transition(domain.StateAwaitingForecast)
	short, err := p.client.ShortForecast(ctx, endpoint)
	if err != nil {
		return fail(stageForecast, err)
	}
	sink.SetForecast(short)
	log.Info("forecast resolved", zap.String("location", geo.Location), zap.String("forecast", short))

	transition(domain.StateDone)
	return state, nil
}
