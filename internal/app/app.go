// Package app wires configuration, clients and the relay use case into a
// handler shared by the Lambda and HTTP entrypoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-relay/handler"
	"portfolio-relay/internal/config"
	"portfolio-relay/internal/integrations/gemini"
	"portfolio-relay/internal/integrations/paramstore"
	"portfolio-relay/internal/persona"
	"portfolio-relay/internal/usecase"
)

const (
	apiKeyParam  = "gemini-token"
	personaParam = "persona"
)

type paramGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// newParams builds the Parameter Store client. Tests replace it.
var newParams = func(ctx context.Context) (paramGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return paramstore.New(awsssm.NewFromConfig(cfg))
}

// NewLogger returns the JSON logger used by both entrypoints.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewHandler builds the request handler from cfg. Parameter Store is only
// contacted when cfg.ParamPrefix is set.
func NewHandler(ctx context.Context, cfg config.Config, logger *slog.Logger) (*handler.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		keys     gemini.KeySource = gemini.EnvKey(config.APIKeyEnv)
		personaO                  = persona.Options{File: cfg.PersonaFile}
	)

	if cfg.ParamPrefix != "" {
		params, err := newParams(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: parameter store: %w", err)
		}
		keys = gemini.FirstKey(keys, gemini.ParamStoreKey(params, paramstore.Name(cfg.ParamPrefix, apiKeyParam)))
		personaO.Params = params
		personaO.ParamName = paramstore.Name(cfg.ParamPrefix, personaParam)
	}

	p, err := persona.Load(ctx, personaO, func(err error) bool {
		return errors.Is(err, paramstore.ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("app: load persona: %w", err)
	}

	llm, err := gemini.NewClient(keys,
		gemini.WithBaseURL(cfg.GeminiBaseURL),
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithTimeout(cfg.GeminiTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app: gemini client: %w", err)
	}

	relay, err := usecase.NewRelayService(llm, p, logger)
	if err != nil {
		return nil, fmt.Errorf("app: relay service: %w", err)
	}

	logger.Info("relay configured",
		"model", llm.Model(),
		"persona_owner", p.Owner,
		"param_store", cfg.ParamPrefix != "",
	)
	return handler.NewHandler(relay, logger)
}
