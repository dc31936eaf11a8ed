// Package market resolves search text into broker instruments and caches the
// result for the lifetime of a run.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickgao/nifty-data/internal/api"
	"github.com/rickgao/nifty-data/internal/model"
)

// ErrSymbolNotFound is returned when a search yields no usable instrument.
var ErrSymbolNotFound = errors.New("symbol not found")

// Searcher is the broker search call.
type Searcher interface {
	SearchScrip(ctx context.Context, exchange, text string) (*api.SearchResult, error)
}

// Registry resolves instruments once and caches them by exchange and search text.
type Registry struct {
	searcher Searcher
	logger   *slog.Logger

	mu    sync.RWMutex
	byKey map[string]model.Instrument
}

// NewRegistry creates an empty Registry.
func NewRegistry(searcher Searcher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		searcher: searcher,
		logger:   logger,
		byKey:    make(map[string]model.Instrument),
	}
}

// Resolve returns the instrument for text on exchange. The first match on
// the requested exchange wins; the broker's ordering is kept.
func (r *Registry) Resolve(ctx context.Context, exchange, text string) (model.Instrument, error) {
	key := cacheKey(exchange, text)

	r.mu.RLock()
	inst, ok := r.byKey[key]
	r.mu.RUnlock()
	if ok {
		return inst, nil
	}

	res, err := r.searcher.SearchScrip(ctx, exchange, text)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("resolve %q: %w", text, err)
	}
	if !res.OK || len(res.Values) == 0 {
		r.logger.Error("symbol not found", "exchange", exchange, "search", text, "stat", res.Stat, "message", res.Message)
		return model.Instrument{}, fmt.Errorf("%w: %q on %s", ErrSymbolNotFound, text, exchange)
	}

	scrip, ok := pick(res.Values, exchange)
	if !ok {
		r.logger.Error("symbol not found", "exchange", exchange, "search", text, "matches", len(res.Values))
		return model.Instrument{}, fmt.Errorf("%w: %q on %s has no token", ErrSymbolNotFound, text, exchange)
	}

	inst = model.Instrument{
		SearchText:  text,
		Exchange:    scrip.Exchange,
		Token:       scrip.Token,
		DisplayName: scrip.DisplayName(),
	}
	if inst.Exchange == "" {
		inst.Exchange = exchange
	}
	if inst.DisplayName == "" {
		inst.DisplayName = inst.Token
	}

	r.mu.Lock()
	r.byKey[key] = inst
	r.mu.Unlock()

	r.logger.Info("found symbol", "search", text, "symbol", inst.DisplayName, "token", inst.Token, "exchange", inst.Exchange)
	return inst, nil
}

func pick(values []api.Scrip, exchange string) (api.Scrip, bool) {
	for _, v := range values {
		if v.Token == "" {
			continue
		}
		if v.Exchange == "" || strings.EqualFold(v.Exchange, exchange) {
			return v, true
		}
	}
	return api.Scrip{}, false
}

func cacheKey(exchange, text string) string {
	return strings.ToUpper(exchange) + "|" + strings.ToUpper(strings.TrimSpace(text))
}
