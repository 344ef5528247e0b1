package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/openai"

	"socratic-tutor/internal/logger"
)

// FallbackQuestion is returned when generation fails and the caller supplied
// no fallback of its own.
const FallbackQuestion = "What normally regulates this process in healthy cells?"

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 48
	defaultTemperature = 0.2
)

// Options configures a Generator.
type Options struct {
	Provider    string
	Model       string
	Token       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	// Temperature defaults to 0.2 when nil.
	Temperature *float64
}

// Generator rephrases tutor questions through an external text model. It never
// returns an error: every failure degrades to a fallback question.
type Generator struct {
	model       llms.Model
	timeout     time.Duration
	maxTokens   int
	temperature float64
	log         *logger.Logger
}

// New builds a Generator for the configured provider ("openai" or "huggingface").
func New(opts Options, log *logger.Logger) (*Generator, error) {
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(opts.Provider) {
	case "openai":
		openaiOpts := []openai.Option{openai.WithToken(opts.Token)}
		if opts.Model != "" {
			openaiOpts = append(openaiOpts, openai.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(opts.BaseURL))
		}
		model, err = openai.New(openaiOpts...)
	case "huggingface", "hf":
		hfOpts := []huggingface.Option{huggingface.WithToken(opts.Token)}
		if opts.Model != "" {
			hfOpts = append(hfOpts, huggingface.WithModel(opts.Model))
		}
		if opts.BaseURL != "" {
			hfOpts = append(hfOpts, huggingface.WithURL(opts.BaseURL))
		}
		model, err = huggingface.New(hfOpts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", opts.Provider, err)
	}
	return NewWithModel(model, opts, log), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, opts Options, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	g := &Generator{
		model:       model,
		timeout:     opts.Timeout,
		maxTokens:   opts.MaxTokens,
		temperature: defaultTemperature,
		log:         log,
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if opts.Temperature != nil {
		g.temperature = *opts.Temperature
	}
	return g
}

// Generate sends prompt to the model and returns its first question. Errors,
// timeouts and answers without a question mark yield fallback (or
// FallbackQuestion when fallback is empty).
func (g *Generator) Generate(ctx context.Context, prompt, fallback string) string {
	if fallback == "" {
		fallback = FallbackQuestion
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTemperature(g.temperature),
		llms.WithTopP(0.9),
		llms.WithRepetitionPenalty(1.08),
	)
	if err != nil {
		g.log.Warn("text generation failed", "error", err)
		return fallback
	}
	question, ok := FirstQuestion(text)
	if !ok {
		g.log.Warn("text generation returned no question", "length", len(text))
		return fallback
	}
	return question
}

// FirstQuestion trims text to its first question, including the "?".
func FirstQuestion(text string) (string, bool) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, "?")
	if idx < 0 {
		return "", false
	}
	question := strings.TrimSpace(text[:idx]) + "?"
	if question == "?" {
		return "", false
	}
	return question, true
}
