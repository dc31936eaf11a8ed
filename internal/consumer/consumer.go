// Package consumer delivers normalized ticks and order events to their
// destinations: stdout, the log, a Redis stream, or several at once.
package consumer

import (
	"errors"
	"fmt"

	"github.com/rickgao/nifty-data/internal/feed"
	"github.com/rickgao/nifty-data/internal/model"
)

// Fanout delivers each event to every consumer in order. One consumer failing
// does not stop delivery to the rest; the errors are joined.
type Fanout []feed.Consumer

// OnTick delivers t to every consumer.
func (f Fanout) OnTick(t model.CanonicalTick) error {
	var errs []error
	for i, c := range f {
		if err := c.OnTick(t); err != nil {
			errs = append(errs, fmt.Errorf("consumer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// OnOrderEvent delivers e to every consumer.
func (f Fanout) OnOrderEvent(e map[string]any) error {
	var errs []error
	for i, c := range f {
		if err := c.OnOrderEvent(e); err != nil {
			errs = append(errs, fmt.Errorf("consumer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
