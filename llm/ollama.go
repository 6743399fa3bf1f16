// Package llm adapts a local Ollama server to the price disambiguator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"pricefinder/logger"
	"pricefinder/scraper"
)

const defaultModel = "deepseek-r1:1.5b"

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("empty model response")

// thinkBlock matches the reasoning section emitted by reasoning models.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Config holds the Ollama connection settings.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// OllamaClient sends single-turn chat prompts to Ollama.
type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	log     logger.Logger
}

var _ scraper.Inferencer = (*OllamaClient)(nil)

// NewOllamaClient creates a client. An empty host falls back to OLLAMA_HOST
// and then to the local default.
func NewOllamaClient(cfg Config, log logger.Logger) (*OllamaClient, error) {
	var client *api.Client
	if cfg.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host %q: %w", cfg.Host, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OllamaClient{client: client, model: model, timeout: cfg.Timeout, log: log}, nil
}

// Infer implements scraper.Inferencer.
func (c *OllamaClient) Infer(ctx context.Context, prompt string, opts scraper.InferenceOptions) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_ctx":     opts.ContextWindow,
		},
	}

	var b strings.Builder
	start := time.Now()
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat (%s): %w", c.model, err)
	}

	answer := CleanResponse(b.String())
	c.log.Debug("Model answered",
		logger.String("model", c.model),
		logger.Duration("elapsed", time.Since(start)),
		logger.String("answer", answer),
	)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// CleanResponse drops reasoning blocks and the sentence-ending period a model
// tends to append to a bare number.
func CleanResponse(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimRight(s, "."))
}
