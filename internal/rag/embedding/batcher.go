package embedding

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

type BatcherConfig struct {
	RequestsPerSecond float64
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	MaxAttempts       int
	BatchTimeout      time.Duration
}

func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		RequestsPerSecond: config.EmbeddingRequestsPerSecond,
		InitialInterval:   config.EmbeddingRetryInitialInterval,
		MaxInterval:       config.EmbeddingRetryMaxInterval,
		MaxAttempts:       config.EmbeddingRetryMaxAttempts,
		BatchTimeout:      config.EmbeddingBatchTimeout,
	}
}

// Batcher splits work into provider-sized batches, paces and retries them,
// and reassembles the vectors in input order.
type Batcher struct {
	provider Provider
	limiter  *rate.Limiter
	cfg      BatcherConfig
	logger   *logger_i.Logger
}

func NewBatcher(p Provider, cfg BatcherConfig) *Batcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Batcher{
		provider: p,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   logger_i.NewLogger("embedding_batcher").With("provider", p.ID()),
	}
}

func (b *Batcher) Provider() Provider { return b.provider }

// Embed returns one vector per text. A text longer than the provider limit is
// embedded in pieces and the piece vectors are averaged.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var flat []string
	owners := make([]int, 0, len(texts))
	for i, text := range texts {
		for _, piece := range splitLong(text, b.provider.MaxInputChars()) {
			flat = append(flat, piece)
			owners = append(owners, i)
		}
	}

	size := b.provider.MaxBatch()
	if size <= 0 {
		size = len(flat)
	}

	vectors := make([][]float32, 0, len(flat))
	for start := 0; start < len(flat); start += size {
		end := start + size
		if end > len(flat) {
			end = len(flat)
		}
		batch, err := b.embedBatch(ctx, flat[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return average(vectors, owners, len(texts)), nil
}

func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if qe, ok := b.provider.(QueryEmbedder); ok && utf8.RuneCountInString(text) <= maxOrInf(b.provider.MaxInputChars()) {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return qe.EmbedQuery(ctx, text)
	}
	res, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(b.cfg.InitialInterval),
		backoff.WithMaxInterval(b.cfg.MaxInterval),
	)
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(b.cfg.MaxAttempts-1)), ctx)

	operation := func() ([][]float32, error) {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		callCtx := ctx
		if b.cfg.BatchTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.cfg.BatchTimeout)
			defer cancel()
		}
		res, err := b.provider.Embed(callCtx, batch)
		if err != nil {
			if isRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if err := b.validate(res, len(batch)); err != nil {
			return nil, backoff.Permanent(err)
		}
		return res, nil
	}

	notify := func(err error, wait time.Duration) {
		b.logger.Warn("Rate limit hit, retrying batch", "wait", wait, "size", len(batch), "error", err)
	}

	res, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		metrics.ObserveEmbeddingBatch(b.provider.ID(), "error")
		return nil, err
	}
	metrics.ObserveEmbeddingBatch(b.provider.ID(), "ok")
	return res, nil
}

func (b *Batcher) validate(res [][]float32, want int) error {
	if len(res) != want {
		return fmt.Errorf("%s: %w: got %d vectors for %d texts", b.provider.ID(), knowledgeModel.ErrMalformedInput, len(res), want)
	}
	dim := b.provider.Dimension()
	for i, v := range res {
		if len(v) == 0 {
			return fmt.Errorf("%s: %w: empty vector at %d", b.provider.ID(), knowledgeModel.ErrMalformedInput, i)
		}
		if dim > 0 && len(v) != dim {
			return fmt.Errorf("%s: %w: vector %d has %d values, want %d", b.provider.ID(), knowledgeModel.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

func splitLong(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// average folds piece vectors back onto their owning text.
func average(vectors [][]float32, owners []int, n int) [][]float32 {
	out := make([][]float32, n)
	counts := make([]int, n)
	for i, v := range vectors {
		o := owners[i]
		if out[o] == nil {
			out[o] = make([]float32, len(v))
		}
		for j := range v {
			out[o][j] += v[j]
		}
		counts[o]++
	}
	for i := range out {
		if counts[i] > 1 {
			for j := range out[i] {
				out[i][j] /= float32(counts[i])
			}
		}
	}
	return out
}

func maxOrInf(n int) int {
	if n <= 0 {
		return int(^uint(0) >> 1)
	}
	return n
}
