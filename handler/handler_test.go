package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"weather-agent/internal/domain"
	"weather-agent/internal/usecase"
)

type stubService struct {
	ingestOut usecase.IngestOutput
	resultOut usecase.ResultOutput
	err       error

	ingestIn  usecase.IngestInput
	resetID   string
	resultID  string
	callCount int
}

func (s *stubService) Ingest(_ context.Context, in usecase.IngestInput) (usecase.IngestOutput, error) {
	s.callCount++
	s.ingestIn = in
	return s.ingestOut, s.err
}

func (s *stubService) Reset(_ context.Context, sessionID string) error {
	s.callCount++
	s.resetID = sessionID
	return s.err
}

func (s *stubService) Result(_ context.Context, sessionID string) (usecase.ResultOutput, error) {
	s.callCount++
	s.resultID = sessionID
	return s.resultOut, s.err
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func mustNewHandler(t *testing.T, svc SessionService) *Handler {
	t.Helper()
	h, err := NewHandler(svc, nil)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

func TestHandle_Turns_HappyPath(t *testing.T) {
	svc := &stubService{ingestOut: usecase.IngestOutput{
		SessionID:              "sess-1",
		TriggeredInteractionID: "i-1",
		Result:                 domain.Result{Location: "New York", Forecast: "Sunny"},
	}}
	h := mustNewHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/turns",
		`{"sessionId":"sess-1","turns":[{"id":"u-1","interactionId":"i-1","text":"weather in New York?","origin":"User"}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.IngestInput{
		SessionID: "sess-1",
		Turns:     []domain.ConversationTurn{{ID: "u-1", InteractionID: "i-1", Text: "weather in New York?", Origin: domain.OriginUser}},
	}, svc.ingestIn)

	out := parseBody[turnsResponse](t, resp.Body)
	require.Equal(t, turnsResponse{SessionID: "sess-1", TriggeredInteractionID: "i-1", Location: "New York", Forecast: "Sunny"}, out)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_Turns_InvalidBody(t *testing.T) {
	svc := &stubService{}
	h := mustNewHandler(t, svc)

	for _, body := range []string{`not-json`, `{"turns":[],"extra":true}`} {
		resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/turns", body))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		out := parseBody[errorResponse](t, resp.Body)
		require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
	}
	require.Zero(t, svc.callCount)
}

func TestHandle_Reset(t *testing.T) {
	svc := &stubService{}
	h := mustNewHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/reset", `{"sessionId":"sess-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.Equal(t, "sess-1", svc.resetID)
}

func TestHandle_Result(t *testing.T) {
	svc := &stubService{resultOut: usecase.ResultOutput{SessionID: "sess-1", Result: domain.Result{Location: "Austin", Forecast: "Hot"}}}
	h := mustNewHandler(t, svc)

	event := makeEvent(http.MethodGet, "/result/", "")
	event.QueryStringParameters = map[string]string{"sessionId": "sess-1"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "sess-1", svc.resultID)
	require.Equal(t, resultResponse{SessionID: "sess-1", Location: "Austin", Forecast: "Hot"}, parseBody[resultResponse](t, resp.Body))
}

func TestHandle_RoutingErrors(t *testing.T) {
	h := mustNewHandler(t, &stubService{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/nope", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodGet, "/turns", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodPost, "/result", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_turns"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "not found", err: &usecase.Error{Code: usecase.ErrorNotFound, Reason: "session_not_found"}, status: http.StatusNotFound, code: string(usecase.ErrorNotFound)},
		{name: "conflict", err: &usecase.Error{Code: usecase.ErrorConflict, Reason: "session_version_conflict"}, status: http.StatusConflict, code: string(usecase.ErrorConflict)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "dynamodb_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := mustNewHandler(t, &stubService{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/turns", `{"turns":[{"interactionId":"i-1","text":"hi","origin":"User"}]}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := mustNewHandler(t, &stubService{ingestOut: usecase.IngestOutput{SessionID: "sess-1"}})

	event := makeEvent(http.MethodPost, "/turns", `{"turns":[{"interactionId":"i-1","text":"hi","origin":"User"}]}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
