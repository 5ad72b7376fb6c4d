package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph-dev/codegraph/internal/config"
	"github.com/codegraph-dev/codegraph/internal/errs"
)

// HTTPEmbedder generates embeddings by calling a local or remote embedding
// server over HTTP, using the Ollama /api/embed request/response shape
// (the same wire format is also served by llama.cpp's server and LM Studio).
type HTTPEmbedder struct {
	client    *http.Client
	transport *http.Transport
	endpoint  string
	model     string
	batchSize int
	timeout   time.Duration
	maxRetry  int
	maxConc   int

	mu     sync.RWMutex
	closed bool
	dims   int
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder builds an embedder against cfg.Endpoint, auto-detecting
// the embedding dimension from a probe call if cfg.Dimensions is zero.
func NewHTTPEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (*HTTPEmbedder, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrency
	}

	transport := &http.Transport{
		MaxIdleConns:        maxConc,
		MaxIdleConnsPerHost: maxConc,
		MaxConnsPerHost:     maxConc * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	e := &HTTPEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
		model:     cfg.Model,
		batchSize: batchSize,
		timeout:   DefaultTimeout,
		maxRetry:  DefaultMaxRetries,
		maxConc:   maxConc,
		dims:      cfg.Dimensions,
	}

	if e.dims == 0 {
		dims, err := e.detectDimensions(ctx)
		if err != nil {
			transport.CloseIdleConnections()
			return nil, errs.NewEmbeddingError(fmt.Errorf("detect embedding dimensions: %w", err))
		}
		e.dims = dims
	}

	return e, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *HTTPEmbedder) detectDimensions(ctx context.Context) (int, error) {
	embs, err := e.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(embs) == 0 || len(embs[0]) == 0 {
		return 0, fmt.Errorf("empty embedding returned by probe")
	}
	return len(embs[0]), nil
}

// Embed generates an embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dims), nil
	}

	embs, err := e.doEmbedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting into
// sub-batches of batchSize and running up to maxConc of them concurrently.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type chunk struct {
		start int
		texts []string
	}
	var chunks []chunk
	var nonEmptyIdx []int
	var nonEmptyTexts []string
	results := make([][]float32, len(texts))

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
			continue
		}
		nonEmptyIdx = append(nonEmptyIdx, i)
		nonEmptyTexts = append(nonEmptyTexts, text)
	}

	for start := 0; start < len(nonEmptyTexts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(nonEmptyTexts) {
			end = len(nonEmptyTexts)
		}
		chunks = append(chunks, chunk{start: start, texts: nonEmptyTexts[start:end]})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConc)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			embs, err := e.doEmbedWithRetry(gctx, c.texts)
			if err != nil {
				return fmt.Errorf("embed batch at offset %d: %w", c.start, err)
			}
			for i, emb := range embs {
				results[nonEmptyIdx[c.start+i]] = emb
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *HTTPEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < e.maxRetry; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempt > 0 {
			backoff := time.Duration(100<<attempt) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
		embs, err := e.doEmbed(timeoutCtx, texts)
		cancel()

		if err == nil {
			return embs, nil
		}
		lastErr = err
		slog.Debug("embedding_attempt_failed",
			slog.Int("attempt", attempt+1),
			slog.Int("texts_count", len(texts)),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, errs.NewEmbeddingError(fmt.Errorf("failed after %d attempts: %w", e.maxRetry, lastErr))
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request embedding server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		v := make([]float32, len(emb))
		for j, f := range emb {
			v[j] = float32(f)
		}
		embeddings[i] = normalizeVector(v)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.model }

// Available checks whether the embedding server responds to a probe request.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.doEmbed(ctx, []string{"ping"})
	return err == nil
}

// Close releases idle HTTP connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	return nil
}
