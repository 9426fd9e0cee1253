package source

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

	"github.com/msalah0e/conceptmap/internal/cache"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// maxPayload bounds a single map download.
const maxPayload = 16 << 20

// BreakerConfig controls when the HTTP source stops calling a failing server.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
}

// DefaultBreakerConfig trips after three straight failures and retries after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 3, Timeout: 30 * time.Second}
}

// HTTP fetches maps with `GET {base}/{key}` and lists them with `GET {base}`.
// When a cache is attached, every good payload is stored and served back
// while the server is unreachable.
type HTTP struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *cache.Store
	logger  *zap.Logger
	bcfg    BreakerConfig
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*HTTP)

// WithClient replaces the default client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithLogger sets the source logger.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCache attaches an offline cache.
func WithCache(c *cache.Store) HTTPOption {
	return func(h *HTTP) { h.cache = c }
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) HTTPOption {
	return func(h *HTTP) { h.bcfg = cfg }
}

// NewHTTP creates an HTTP source.
func NewHTTP(base string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: zap.NewNop(),
		bcfg:   DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "map-source",
		Timeout: h.bcfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= h.bcfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.logger.Warn("map source breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return h
}

// Fetch downloads one map, falling back to the cache when the server fails.
func (h *HTTP) Fetch(ctx context.Context, key string) (*graph.Snapshot, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}

	body, err := h.call(ctx, h.base+"/"+url.PathEscape(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("fetch map %s: %w", key, err)
		}
		if cached, ok := h.cached(key); ok {
			h.logger.Warn("serving cached map", zap.String("key", key), zap.Error(err))
			return cached, nil
		}
		return nil, fmt.Errorf("fetch map %s: %w", key, err)
	}

	snap, err := graph.DecodeSnapshot(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", key, err)
	}
	if snap.Key == "" {
		snap.Key = key
	}
	if h.cache != nil {
		if err := h.cache.Put(key, body); err != nil {
			h.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return snap, nil
}

// Keys lists the maps the server offers. The index is a JSON array of keys.
func (h *HTTP) Keys(ctx context.Context) ([]string, error) {
	body, err := h.call(ctx, h.base)
	if err != nil {
		if h.cache != nil {
			if keys := h.cache.Keys(); len(keys) > 0 {
				h.logger.Warn("listing cached maps", zap.Error(err))
				return keys, nil
			}
		}
		return nil, fmt.Errorf("list maps: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return keys, nil
}

func (h *HTTP) cached(key string) (*graph.Snapshot, bool) {
	if h.cache == nil {
		return nil, false
	}
	data, ok := h.cache.Get(key)
	if !ok {
		return nil, false
	}
	snap, err := graph.DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		h.logger.Warn("discarding corrupt cached map", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if snap.Key == "" {
		snap.Key = key
	}
	return snap, true
}

func (h *HTTP) call(ctx context.Context, target string) ([]byte, error) {
	out, err := h.breaker.Execute(func() (interface{}, error) {
		return h.get(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (h *HTTP) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPayload))
}
