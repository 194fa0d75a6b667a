package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"weather-agent/internal/domain"
	"weather-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// SessionService is the use case surface exposed over API Gateway.
type SessionService interface {
	Ingest(ctx context.Context, in usecase.IngestInput) (usecase.IngestOutput, error)
	Reset(ctx context.Context, sessionID string) error
	Result(ctx context.Context, sessionID string) (usecase.ResultOutput, error)
}

type Handler struct {
	svc    SessionService
	logger *zap.Logger
}

type turnsRequest struct {
	SessionID string                    `json:"sessionId"`
	Turns     []domain.ConversationTurn `json:"turns"`
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

type turnsResponse struct {
	SessionID              string `json:"sessionId"`
	TriggeredInteractionID string `json:"triggeredInteractionId,omitempty"`
	Location               string `json:"location"`
	Forecast               string `json:"forecast"`
}

type resultResponse struct {
	SessionID string `json:"sessionId"`
	Location  string `json:"location"`
	Forecast  string `json:"forecast"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(svc SessionService, logger *zap.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: session service must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}, nil
}

// Handle routes an API Gateway proxy event. Failures are reported in the
// response; the returned error is always nil so Lambda does not retry.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	log := h.logger.With(zap.String("correlation_id", corrID), zap.String("path", req.Path))

	var (
		status int
		body   any
	)
	switch strings.TrimRight(req.Path, "/") {
	case "/turns":
		status, body = h.turns(ctx, log, req)
	case "/reset":
		status, body = h.reset(ctx, log, req)
	case "/result":
		status, body = h.result(ctx, log, req)
	default:
		status, body = http.StatusNotFound, errorResponse{Error: "NOT_FOUND"}
	}
	return respond(status, body, corrID), nil
}

func (h *Handler) turns(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) (int, any) {
	if req.HTTPMethod != http.MethodPost {
		return http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"}
	}
	var in turnsRequest
	if err := decodeBody(req.Body, &in); err != nil {
		log.Warn("invalid request body", zap.Error(err))
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}
	}
	out, err := h.svc.Ingest(ctx, usecase.IngestInput{SessionID: in.SessionID, Turns: in.Turns})
	if err != nil {
		return h.failure(log, err)
	}
	return http.StatusOK, turnsResponse{
		SessionID:              out.SessionID,
		TriggeredInteractionID: out.TriggeredInteractionID,
		Location:               out.Result.Location,
		Forecast:               out.Result.Forecast,
	}
}

func (h *Handler) reset(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) (int, any) {
	if req.HTTPMethod != http.MethodPost {
		return http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"}
	}
	var in resetRequest
	if err := decodeBody(req.Body, &in); err != nil {
		log.Warn("invalid request body", zap.Error(err))
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}
	}
	if err := h.svc.Reset(ctx, in.SessionID); err != nil {
		return h.failure(log, err)
	}
	return http.StatusNoContent, nil
}

func (h *Handler) result(ctx context.Context, log *zap.Logger, req events.APIGatewayProxyRequest) (int, any) {
	if req.HTTPMethod != http.MethodGet {
		return http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"}
	}
	out, err := h.svc.Result(ctx, req.QueryStringParameters["sessionId"])
	if err != nil {
		return h.failure(log, err)
	}
	return http.StatusOK, resultResponse{
		SessionID: out.SessionID,
		Location:  out.Result.Location,
		Forecast:  out.Result.Forecast,
	}
}

func (h *Handler) failure(log *zap.Logger, err error) (int, any) {
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		log.Error("unexpected error", zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}

	status := statusFor(usecaseErr.Code)
	fields := []zap.Field{zap.String("code", string(usecaseErr.Code)), zap.String("reason", usecaseErr.Reason), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Info("request rejected", fields...)
	}
	return status, errorResponse{Error: string(usecaseErr.Code)}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(body string, v any) error {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// correlationID returns the caller's correlation id (header names are
// matched case-insensitively) or a fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func respond(status int, body any, corrID string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":    "application/json",
		correlationHeader: corrID,
	}
	if body == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(raw)}
}
