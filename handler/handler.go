package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-relay/internal/domain"
	"portfolio-relay/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Relayer is the use case behind both the Lambda and the HTTP entrypoints.
type Relayer interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
	ErrorMessage() string
}

// Handler turns chat widget requests into relay calls and relay results into
// the {success, message|error} envelope. It never returns a Go error to the
// runtime; every failure becomes an envelope.
type Handler struct {
	relayer Relayer
	logger  *slog.Logger
}

// chatRequest is the widget's request body.
type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

func NewHandler(r Relayer, logger *slog.Logger) (*Handler, error) {
	if r == nil {
		return nil, errors.New("handler: relayer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{relayer: r, logger: logger}, nil
}

// Handle serves API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	var (
		status int
		env    domain.ReplyEnvelope
	)
	switch {
	case req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost:
		status, env = http.StatusMethodNotAllowed, domain.Failure("method not allowed")
	default:
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				status, env = http.StatusBadRequest, domain.Failure("request body is not valid base64")
				break
			}
			body = decoded
		}
		status, env = h.relay(ctx, body, corrID)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(mustMarshal(env)),
	}, nil
}

// relay decodes body, runs the use case and picks the HTTP status.
func (h *Handler) relay(ctx context.Context, body []byte, corrID string) (int, domain.ReplyEnvelope) {
	start := time.Now()
	logger := h.logger.With("correlation_id", corrID)

	var in chatRequest
	if err := json.Unmarshal(body, &in); err != nil {
		logger.InfoContext(ctx, "chat request rejected", "status", http.StatusBadRequest, "code", usecase.ErrorInvalidInput, "reason", "invalid_json")
		return http.StatusBadRequest, domain.Failure("request body must be a JSON object with a messages array")
	}

	out, err := h.relayer.Relay(ctx, usecase.RelayInput{Messages: in.Messages})
	if err != nil {
		status, text := h.failure(err)
		attrs := []any{"status", status, "messages", len(in.Messages), "duration_ms", time.Since(start).Milliseconds()}
		var ue *usecase.Error
		if errors.As(err, &ue) {
			attrs = append(attrs, "code", ue.Code, "reason", ue.Reason)
		}
		logger.InfoContext(ctx, "chat request failed", attrs...)
		return status, domain.Failure(text)
	}

	logger.InfoContext(ctx, "chat request relayed",
		"status", http.StatusOK,
		"messages", len(in.Messages),
		"degraded", out.Degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return http.StatusOK, domain.Reply(out.Message)
}

func (h *Handler) failure(err error) (int, string) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, h.relayer.ErrorMessage()
	}
	text := ue.Message
	if text == "" {
		text = h.relayer.ErrorMessage()
	}
	if ue.Code == usecase.ErrorInvalidInput {
		return http.StatusBadRequest, text
	}
	return http.StatusInternalServerError, text
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newUUID()
}

func mustMarshal(env domain.ReplyEnvelope) []byte {
	b, err := json.Marshal(env)
	if err != nil {
		return []byte(`{"success":false,"error":"internal error"}`)
	}
	return b
}

var newUUID = func() string {
	return uuid.NewString()
}
