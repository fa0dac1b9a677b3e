package persona

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultErrorMessage = "Something went wrong while processing your message."

//go:embed persona.yaml
var embedded []byte

// Persona is the fixed system instruction attached to every relayed request,
// together with the canned texts shown when the provider cannot help.
// It is loaded once at startup and never mutated afterwards.
type Persona struct {
	Owner           string `yaml:"owner"`
	Language        string `yaml:"language"`
	Instruction     string `yaml:"instruction"`
	FallbackMessage string `yaml:"fallback_message"`
	ErrorMessage    string `yaml:"error_message"`
}

// Getter reads a named parameter, e.g. from SSM.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Options selects where Load reads the persona from. Empty fields are skipped.
type Options struct {
	Params    Getter
	ParamName string
	File      string
}

func Parse(raw []byte) (Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Persona{}, fmt.Errorf("persona: decode yaml: %w", err)
	}
	p.Instruction = strings.TrimSpace(p.Instruction)
	p.FallbackMessage = strings.TrimSpace(p.FallbackMessage)
	p.ErrorMessage = strings.TrimSpace(p.ErrorMessage)
	if p.ErrorMessage == "" {
		p.ErrorMessage = defaultErrorMessage
	}
	if err := p.Validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}

func (p Persona) Validate() error {
	if p.Instruction == "" {
		return errors.New("persona: instruction must not be empty")
	}
	if p.FallbackMessage == "" {
		return errors.New("persona: fallback_message must not be empty")
	}
	return nil
}

// Default returns the persona compiled into the binary.
func Default() (Persona, error) {
	return Parse(embedded)
}

func LoadFile(path string) (Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("persona: read %s: %w", path, err)
	}
	return Parse(raw)
}

func LoadParam(ctx context.Context, params Getter, name string) (Persona, error) {
	if params == nil {
		return Persona{}, errors.New("persona: param getter must not be nil")
	}
	raw, err := params.GetParameter(ctx, name)
	if err != nil {
		return Persona{}, fmt.Errorf("persona: load parameter: %w", err)
	}
	return Parse([]byte(raw))
}

// Load resolves the persona with precedence parameter store, then file, then
// the embedded default. isNotFound lets the caller mark a missing parameter as
// "not configured" instead of a failure; it may be nil.
func Load(ctx context.Context, opts Options, isNotFound func(error) bool) (Persona, error) {
	if opts.Params != nil && strings.TrimSpace(opts.ParamName) != "" {
		p, err := LoadParam(ctx, opts.Params, opts.ParamName)
		if err == nil {
			return p, nil
		}
		if isNotFound == nil || !isNotFound(err) {
			return Persona{}, err
		}
	}
	if strings.TrimSpace(opts.File) != "" {
		return LoadFile(opts.File)
	}
	return Default()
}
