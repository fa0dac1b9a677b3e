package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// KeySource yields the API key for one call. An empty key with a nil error
// means "not configured here".
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

type KeySourceFunc func(ctx context.Context) (string, error)

func (f KeySourceFunc) APIKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// Getter is the parameter store read used by ParamStoreKey.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape accepted for a stored API key.
type tokenPayload struct {
	Token string `json:"token"`
}

// EnvKey reads the named environment variable on every call, so a key rotated
// into the environment is picked up without a restart.
func EnvKey(name string) KeySource {
	return KeySourceFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	})
}

// ParamStoreKey reads the key from a parameter holding either {"token":"..."}
// or the bare key. The first successful read is cached for the process
// lifetime; failures are retried on the next call.
func ParamStoreKey(getter Getter, name string) KeySource {
	return &paramStoreKey{getter: getter, name: strings.TrimSpace(name)}
}

type paramStoreKey struct {
	getter Getter
	name   string

	mu  sync.Mutex
	key string
}

func (p *paramStoreKey) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != "" {
		return p.key, nil
	}
	key, err := fetchAPIKeyFromParamStore(ctx, p.getter, p.name)
	if err != nil {
		return "", err
	}
	p.key = key
	return key, nil
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("gemini: paramstore getter is nil")
	}
	if name == "" {
		return "", errors.New("gemini: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch token from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("gemini: unmarshal paramstore token value as JSON: %w", err)
	}
	return strings.TrimSpace(tp.Token), nil
}

// FirstKey tries each source in order and returns the first non-empty key.
// A source error stops the search.
func FirstKey(sources ...KeySource) KeySource {
	return KeySourceFunc(func(ctx context.Context) (string, error) {
		for _, s := range sources {
			if s == nil {
				continue
			}
			key, err := s.APIKey(ctx)
			if err != nil {
				return "", err
			}
			if key != "" {
				return key, nil
			}
		}
		return "", nil
	})
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", &CredentialError{Err: err}
	}
	if key == "" {
		return "", &CredentialError{Err: ErrMissingAPIKey}
	}
	return key, nil
}
