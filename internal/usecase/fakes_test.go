package usecase

import (
	"context"
	"errors"
	"sync"

	"weather-agent/internal/domain"
)

// fakeWeather is a WeatherClient returning canned values and errors per stage.
type fakeWeather struct {
	mu sync.Mutex

	geo      domain.GeoResult
	geoErr   error
	endpoint domain.ForecastEndpoint
	pointErr error
	forecast string
	fcErr    error

	// block, when set, holds Geocode until closed
	block chan struct{}

	geocodeTexts []string
	pointCalls   []domain.GeoResult
	forecastURLs []domain.ForecastEndpoint
}

func newYorkWeather() *fakeWeather {
	return &fakeWeather{
		geo:      domain.GeoResult{Latitude: 40.7, Longitude: 74.0, LatitudeText: "40.7", LongitudeText: "74.0", Location: "New York"},
		endpoint: "https://x/forecast",
		forecast: "Sunny",
	}
}

func (f *fakeWeather) Geocode(_ context.Context, text string) (domain.GeoResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geocodeTexts = append(f.geocodeTexts, text)
	return f.geo, f.geoErr
}

func (f *fakeWeather) ForecastEndpoint(_ context.Context, geo domain.GeoResult) (domain.ForecastEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointCalls = append(f.pointCalls, geo)
	return f.endpoint, f.pointErr
}

func (f *fakeWeather) ShortForecast(_ context.Context, endpoint domain.ForecastEndpoint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastURLs = append(f.forecastURLs, endpoint)
	return f.forecast, f.fcErr
}

func (f *fakeWeather) calls() (geocode, points, forecast int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.geocodeTexts), len(f.pointCalls), len(f.forecastURLs)
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return "unexpected status" }
func (e *statusErr) HTTPStatusCode() int { return e.code }

var errDial = errors.New("dial tcp: connection refused")

func userTurn(interactionID, text string) domain.ConversationTurn {
	return domain.ConversationTurn{
		ID:            "utt-" + interactionID,
		InteractionID: interactionID,
		Text:          text,
		Origin:        domain.OriginUser,
	}
}

// gatedWeather holds each Geocode call until the test sends its outcome on
// the gate matching the call's index. Calls beyond the gates fail with errDial.
type gatedWeather struct {
	*fakeWeather

	entered chan int
	gates   []chan error

	seqMu sync.Mutex
	next  int
}

func newGatedWeather(n int) *gatedWeather {
	g := &gatedWeather{fakeWeather: newYorkWeather(), entered: make(chan int, 16)}
	for i := 0; i < n; i++ {
		g.gates = append(g.gates, make(chan error))
	}
	return g
}

func (g *gatedWeather) Geocode(ctx context.Context, text string) (domain.GeoResult, error) {
	g.seqMu.Lock()
	idx := g.next
	g.next++
	g.seqMu.Unlock()

	g.entered <- idx
	if idx >= len(g.gates) {
		return domain.GeoResult{}, errDial
	}
	if err := <-g.gates[idx]; err != nil {
		return domain.GeoResult{}, err
	}
	return g.fakeWeather.Geocode(ctx, text)
}

func (g *gatedWeather) geocodeCalls() int {
	g.seqMu.Lock()
	defer g.seqMu.Unlock()
	return g.next
}
