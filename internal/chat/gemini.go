// Package chat answers free-form prompts with Google Gemini.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned by Generate when no API key is available.
var ErrNotConfigured = errors.New("gemini is not configured")

// Defaults used when Config leaves a field empty.
const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultTimeout = 30 * time.Second
)

// DefaultKeyEnv lists the environment variables searched for an API key, in
// order. The misspelled variant is accepted because users set it.
var DefaultKeyEnv = []string{"GEMINI_API_KEY", "GEMENI_API_KEY", "GOOGLE_API_KEY"}

// Generator produces a reply for one prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ClientFactory builds a Generator for an API key.
type ClientFactory func(ctx context.Context, apiKey string) (Generator, error)

// Config configures the Gemini backend.
type Config struct {
	Model   string
	KeyEnv  []string
	Timeout time.Duration
}

// Gemini is a chat backend. The client is built lazily from the first key
// found in the environment and rebuilt whenever that key changes.
type Gemini struct {
	model   string
	keyEnv  []string
	timeout time.Duration

	factory   ClientFactory
	lookupEnv func(string) (string, bool)
	logger    *log.Logger

	mu  sync.Mutex
	key string
	gen Generator
}

// Option configures a Gemini backend.
type Option func(*Gemini)

// WithClientFactory replaces the genai client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(g *Gemini) { g.factory = f }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(f func(string) (string, bool)) Option {
	return func(g *Gemini) { g.lookupEnv = f }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gemini) { g.logger = l }
}

// NewGemini creates a backend. No network call is made until Ready or Generate.
func NewGemini(cfg Config, opts ...Option) *Gemini {
	g := &Gemini{
		model:     cfg.Model,
		keyEnv:    cfg.KeyEnv,
		timeout:   cfg.Timeout,
		factory:   newGenaiGenerator,
		lookupEnv: os.LookupEnv,
		logger:    log.New(io.Discard),
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if len(g.keyEnv) == 0 {
		g.keyEnv = DefaultKeyEnv
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithPrefix("chat")
	return g
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Ready reports whether an API key is present and a client could be built.
func (g *Gemini) Ready() bool {
	_, err := g.client(context.Background())
	return err == nil
}

// Generate sends prompt to Gemini and returns the reply text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	gen, err := g.client(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := gen.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return reply, nil
}

func (g *Gemini) client(ctx context.Context) (Generator, error) {
	key := ResolveAPIKey(g.lookupEnv, g.keyEnv)

	g.mu.Lock()
	defer g.mu.Unlock()

	if key == "" {
		g.key, g.gen = "", nil
		return nil, ErrNotConfigured
	}
	if g.gen != nil && g.key == key {
		return g.gen, nil
	}

	gen, err := g.factory(ctx, key)
	if err != nil {
		g.key, g.gen = "", nil
		g.logger.Warn("building gemini client failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	g.logger.Debug("gemini client ready", "model", g.model)
	g.key, g.gen = key, gen
	return gen, nil
}

// ResolveAPIKey returns the first non-empty key among names, with
// surrounding whitespace, quotes and parentheses stripped.
func ResolveAPIKey(lookup func(string) (string, bool), names []string) string {
	for _, name := range names {
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		cleaned := strings.TrimSpace(raw)
		cleaned = strings.Trim(cleaned, `"'`)
		cleaned = strings.TrimSpace(cleaned)
		cleaned = strings.Trim(cleaned, "()")
		if cleaned != "" {
			return cleaned
		}
	}
	return ""
}

type genaiGenerator struct {
	client *genai.Client
}

func newGenaiGenerator(ctx context.Context, apiKey string) (Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &genaiGenerator{client: client}, nil
}

func (g *genaiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	if c := resp.Candidates[0].Content; c != nil {
		for _, part := range c.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
