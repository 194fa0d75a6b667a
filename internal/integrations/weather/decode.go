package weather

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"weather-agent/internal/domain"
)

// decodeGeocode extracts the first geoparse match. Coordinates arrive as text
// with a one-character hemisphere suffix ("40.7N"), which is dropped.
func decodeGeocode(raw []byte) (domain.GeoResult, error) {
	if !gjson.ValidBytes(raw) {
		return domain.GeoResult{}, fmt.Errorf("%w: geocode response is not JSON", ErrMalformedPayload)
	}
	match := gjson.GetBytes(raw, "match")
	if match.IsArray() {
		match = match.Get("0")
	}
	if !match.IsObject() {
		return domain.GeoResult{}, fmt.Errorf("%w: geocode response has no match", ErrMalformedPayload)
	}

	latText := dropLastChar(match.Get("latt").String())
	lonText := dropLastChar(match.Get("longt").String())
	if latText == "" || lonText == "" {
		return domain.GeoResult{}, fmt.Errorf("%w: geocode match missing latt or longt", ErrMalformedPayload)
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return domain.GeoResult{}, fmt.Errorf("%w: latt %q: %v", ErrMalformedPayload, latText, err)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return domain.GeoResult{}, fmt.Errorf("%w: longt %q: %v", ErrMalformedPayload, lonText, err)
	}

	return domain.GeoResult{
		Latitude:      lat,
		Longitude:     lon,
		LatitudeText:  latText,
		LongitudeText: lonText,
		Location:      match.Get("location").String(),
	}, nil
}

// decodePoint reads the forecast URL from a points response. JSON-LD puts it
// at the top level, GeoJSON under properties.
func decodePoint(raw []byte) (domain.ForecastEndpoint, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: points response is not JSON", ErrMalformedPayload)
	}
	forecast := firstString(raw, "forecast", "properties.forecast")
	if forecast == "" {
		return "", fmt.Errorf("%w: points response missing forecast", ErrMalformedPayload)
	}
	return domain.ForecastEndpoint(forecast), nil
}

func decodeForecast(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: forecast response is not JSON", ErrMalformedPayload)
	}
	short := firstString(raw, "periods.0.shortForecast", "properties.periods.0.shortForecast")
	if short == "" {
		return "", fmt.Errorf("%w: forecast response missing periods[0].shortForecast", ErrMalformedPayload)
	}
	return short, nil
}

func firstString(raw []byte, paths ...string) string {
	for _, r := range gjson.GetManyBytes(raw, paths...) {
		if s := r.String(); s != "" {
			return s
		}
	}
	return ""
}

func dropLastChar(s string) string {
	if s == "" {
		return ""
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
