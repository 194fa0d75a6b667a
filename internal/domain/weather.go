package domain

// GeoResult is the place resolved from free text by the geoparse stage.
// The text forms keep the upstream formatting and are what the points
// lookup embeds in its URL.
type GeoResult struct {
	Latitude      float64
	Longitude     float64
	LatitudeText  string
	LongitudeText string
	Location      string
}

// ForecastEndpoint is the region-specific forecast URL returned by the points lookup.
type ForecastEndpoint string

// Result is the latest resolved place name and short forecast.
type Result struct {
	Location string `json:"location"`
	Forecast string `json:"forecast"`
}

// PipelineState is the position of one lookup chain.
type PipelineState string

const (
	StateIdle             PipelineState = "idle"
	StateAwaitingGeo      PipelineState = "awaiting_geo"
	StateAwaitingPoint    PipelineState = "awaiting_point"
	StateAwaitingForecast PipelineState = "awaiting_forecast"
	StateDone             PipelineState = "done"
	StateFailed           PipelineState = "failed"
)
