package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"portfolio-relay/internal/domain"
	"portfolio-relay/internal/integrations/gemini"
	"portfolio-relay/internal/persona"
)

const (
	degradedBlocked   = "prompt_blocked"
	degradedMalformed = "malformed_response"
	degradedEmpty     = "empty_response"
)

type Generator interface {
	Generate(ctx context.Context, systemInstruction string, history []domain.ChatMessage) (gemini.Result, error)
}

// RelayService forwards a widget conversation to the language provider. It
// holds no per-request state, so one instance serves concurrent requests.
type RelayService struct {
	llm     Generator
	persona persona.Persona
	logger  *slog.Logger
}

// RelayInput carries the widget history, oldest first. A nil Messages slice
// means the field was absent from the request; an empty slice is allowed.
type RelayInput struct {
	Messages []domain.ChatMessage
}

// RelayOutput is a successful reply. Degraded is set when the provider
// answered without usable text and Message holds the persona fallback.
type RelayOutput struct {
	Message        string
	Degraded       bool
	DegradedReason string
}

func NewRelayService(llm Generator, p persona.Persona, logger *slog.Logger) (*RelayService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("usecase: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{llm: llm, persona: p, logger: logger}, nil
}

// ErrorMessage is the generic text shown for failures that carry no
// widget-safe message of their own.
func (s *RelayService) ErrorMessage() string {
	return s.persona.ErrorMessage
}

func (s *RelayService) Relay(ctx context.Context, in RelayInput) (RelayOutput, error) {
	if in.Messages == nil {
		return RelayOutput{}, newError(ErrorInvalidInput, "missing_messages", "messages must be an array of chat messages", nil)
	}
	for i, m := range in.Messages {
		if !domain.ValidRole(m.Role) {
			return RelayOutput{}, newError(ErrorInvalidInput, "invalid_role",
				fmt.Sprintf("messages[%d].role must be %q or %q", i, domain.RoleUser, domain.RoleAssistant), nil)
		}
	}

	// A caller that hangs up does not abort the provider call; the client
	// timeout still bounds it.
	res, err := s.llm.Generate(context.WithoutCancel(ctx), s.persona.Instruction, in.Messages)
	if err != nil {
		return RelayOutput{}, s.classify(ctx, err)
	}

	if strings.TrimSpace(res.Text) == "" {
		reason := degradedReason(res)
		s.logger.WarnContext(ctx, "provider returned no usable text, using fallback",
			"reason", reason,
			"finish_reason", res.FinishReason,
			"block_reason", res.BlockReason,
		)
		return RelayOutput{
			Message:        s.persona.FallbackMessage,
			Degraded:       true,
			DegradedReason: reason,
		}, nil
	}

	return RelayOutput{Message: res.Text}, nil
}

func degradedReason(res gemini.Result) string {
	switch {
	case res.Malformed:
		return degradedMalformed
	case res.BlockReason != "" || res.FinishReason == "SAFETY":
		return degradedBlocked
	default:
		return degradedEmpty
	}
}

func (s *RelayService) classify(ctx context.Context, err error) *Error {
	var (
		credErr      *gemini.CredentialError
		providerErr  *gemini.ProviderError
		transportErr *gemini.TransportError
	)
	switch {
	case errors.As(err, &credErr):
		s.logger.ErrorContext(ctx, "gemini API key unavailable", "err", err)
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			return newError(ErrorConfig, "api_key_missing", "API key is not configured", err)
		}
		return newError(ErrorConfig, "api_key_unavailable", "API key could not be loaded", err)

	case errors.As(err, &providerErr):
		s.logger.ErrorContext(ctx, "gemini API error",
			"status", providerErr.StatusCode,
			"body", providerErr.Body,
		)
		reason := "provider_error"
		if providerErr.StatusCode == 429 {
			reason = "provider_rate_limited"
		}
		e := newError(ErrorProvider, reason,
			fmt.Sprintf("API error: %d - %s", providerErr.StatusCode, providerErr.MessageOrDefault()), err)
		e.Status = providerErr.StatusCode
		return e

	case errors.As(err, &transportErr):
		s.logger.ErrorContext(ctx, "gemini request failed", "err", err, "timeout", transportErr.Timeout)
		if transportErr.Timeout {
			return newError(ErrorTransport, "provider_timeout", "provider request timed out", err)
		}
		return newError(ErrorTransport, "provider_unreachable", "provider request failed", err)

	default:
		s.logger.ErrorContext(ctx, "relay failed", "err", err)
		return newError(ErrorInternal, "unexpected_error", s.persona.ErrorMessage, err)
	}
}
