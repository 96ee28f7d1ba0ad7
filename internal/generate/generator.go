// Package generate produces assistant responses through Genkit.
//
// A Generator wraps the model call with the resilience stack: a token
// bucket rate limiter, a circuit breaker, exponential-backoff retries
// for transient provider errors, and a per-call timeout. When the model
// is unreachable the deterministic Fallback text takes over so the
// conversation never dead-ends.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/greenloop/esgpilot/internal/log"
)

// StreamCallback is called for each chunk of a streaming response.
// Returning an error stops the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config configures a Generator.
type Config struct {
	ModelName   string
	Temperature float64
	Timeout     time.Duration // per-call budget, 0 = no timeout
	Retry       RetryConfig
	Breaker     CircuitBreakerConfig
	RateLimit   float64 // requests per second, 0 = unlimited
	RateBurst   int
}

// Generator issues model calls with the full resilience stack applied.
//
// Generator is safe for concurrent use by multiple goroutines.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	timeout     time.Duration
	retry       RetryConfig
	breaker     *CircuitBreaker
	limiter     *rate.Limiter
	logger      log.Logger

	// generateFn is swapped in tests to avoid a live provider.
	generateFn func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// New creates a Generator bound to an initialized Genkit instance.
func New(g *genkit.Genkit, cfg Config, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Generator{
		g:           g,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		retry:       cfg.Retry,
		breaker:     NewCircuitBreaker(cfg.Breaker),
		limiter:     limiter,
		logger:      logger,
		generateFn:  genkit.Generate,
	}
}

// Complete generates a text response for the given system and user
// prompts. The callback, when non-nil, receives chunks as they arrive.
func (gen *Generator) Complete(ctx context.Context, system, prompt string, callback StreamCallback) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(map[string]any{"temperature": gen.temperature}),
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return callback(ctx, chunk)
		}))
	}

	resp, err := gen.execute(ctx, opts)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// CompleteObject generates a structured response conforming to the
// schema type and unmarshals it into out.
func (gen *Generator) CompleteObject(ctx context.Context, system, prompt string, schema, out any) error {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(map[string]any{"temperature": gen.temperature}),
		ai.WithOutputType(schema),
	}

	resp, err := gen.execute(ctx, opts)
	if err != nil {
		return err
	}
	if err := resp.Output(out); err != nil {
		return fmt.Errorf("decoding structured output: %w", err)
	}
	return nil
}

// BreakerState exposes the circuit state for health reporting.
func (gen *Generator) BreakerState() CircuitState {
	return gen.breaker.State()
}

// execute runs one model call with timeout, circuit breaker, rate
// limiting (each attempt) and exponential-backoff retry.
func (gen *Generator) execute(ctx context.Context, opts []ai.GenerateOption) (*ai.ModelResponse, error) {
	if gen.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gen.timeout)
		defer cancel()
	}

	if err := gen.breaker.Allow(); err != nil {
		return nil, err
	}

	var lastErr error
	delay := gen.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= gen.retry.MaxRetries; attempt++ {
		if gen.limiter != nil {
			if err := gen.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := gen.generateFn(ctx, gen.g, opts...)
		if err == nil {
			gen.breaker.Success()
			gen.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			gen.breaker.Failure()
			return nil, fmt.Errorf("model call: %w", err)
		}

		if attempt == gen.retry.MaxRetries {
			break
		}

		gen.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			gen.breaker.Failure()
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, gen.retry.MaxInterval)
		}
	}

	gen.breaker.Failure()
	return nil, fmt.Errorf("model call after %d retries (elapsed: %v): %w",
		gen.retry.MaxRetries, time.Since(start), lastErr)
}
