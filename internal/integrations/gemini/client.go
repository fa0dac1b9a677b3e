package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"portfolio-relay/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second

	apiVersion      = "v1beta"
	roleUser        = "user"
	roleModel       = "model"
	thresholdNone   = "BLOCK_NONE"
	temperature     = 0.7
	maxOutputTokens = 1000

	maxResponseBytes = 1 << 20
	maxErrorBytes    = 64 << 10
)

// harmCategories are the four adjustable categories; every one is sent with
// BLOCK_NONE so the portfolio assistant is never silently filtered upstream.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Content is one conversation turn in the generateContent schema.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// generateRequest is the request body for models/{model}:generateContent.
type generateRequest struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
	SafetySettings    []SafetySetting  `json:"safetySettings"`
}

// generateResponse is the subset of the response the relay reads.
type generateResponse struct {
	Candidates []struct {
		Content      *Content `json:"content"`
		FinishReason string   `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Result is the outcome of a successful (2xx) generateContent call. Text is
// empty when the provider produced nothing usable; the other fields say why.
type Result struct {
	Text         string
	FinishReason string
	BlockReason  string
	Malformed    bool
}

// Client calls the Gemini generateContent endpoint over plain HTTPS.
type Client struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	keys       KeySource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = strings.TrimSpace(model)
	}
}

// WithTimeout bounds each Generate call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client that asks keys for the API key on every call.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/"+apiVersion) {
		base += "/" + apiVersion
	}
	return base + "/models/" + url.PathEscape(model) + ":generateContent"
}

// Turns maps widget history to provider turns. Length and order are kept and
// each content string becomes exactly one text part.
func Turns(history []domain.ChatMessage) []Content {
	out := make([]Content, 0, len(history))
	for _, m := range history {
		role := roleUser
		if m.Role == domain.RoleAssistant {
			role = roleModel
		}
		out = append(out, Content{Role: role, Parts: []Part{{Text: m.Content}}})
	}
	return out
}

func buildRequest(systemInstruction string, history []domain.ChatMessage) generateRequest {
	safety := make([]SafetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		safety = append(safety, SafetySetting{Category: cat, Threshold: thresholdNone})
	}

	req := generateRequest{
		Contents: Turns(history),
		GenerationConfig: GenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
		SafetySettings: safety,
	}
	if systemInstruction != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: systemInstruction}}}
	}
	return req
}

// Generate sends one generateContent request. Non-2xx responses return a
// *ProviderError, network failures a *TransportError, and key problems a
// *CredentialError. A 2xx response never fails; see Result.
func (c *Client) Generate(ctx context.Context, systemInstruction string, history []domain.ChatMessage) (Result, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(buildRequest(systemInstruction, history))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generateURL(c.baseURL, c.model), bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return Result{}, newTransportError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))
		return Result{}, providerErrorFrom(res, buf)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Result{}, newTransportError(fmt.Errorf("read response body: %w", err))
	}
	return parseResult(raw), nil
}

func parseResult(raw []byte) Result {
	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Result{Malformed: true}
	}

	var out Result
	if payload.PromptFeedback != nil {
		out.BlockReason = payload.PromptFeedback.BlockReason
	}
	if len(payload.Candidates) == 0 {
		return out
	}
	first := payload.Candidates[0]
	out.FinishReason = first.FinishReason
	if first.Content == nil || len(first.Content.Parts) == 0 {
		return out
	}
	out.Text = first.Content.Parts[0].Text
	return out
}

// providerErrorFrom decodes the Google error envelope
// {"error":{"code":..,"message":..}} when present.
func providerErrorFrom(res *http.Response, body []byte) *ProviderError {
	pe := &ProviderError{StatusCode: res.StatusCode, Body: string(body)}
	var gerr *googleapi.Error
	if errors.As(googleapi.CheckResponseWithBody(res, body), &gerr) {
		pe.Message = strings.TrimSpace(gerr.Message)
	}
	return pe
}
