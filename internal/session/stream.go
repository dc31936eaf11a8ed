package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rickgao/nifty-data/internal/connection"
	"github.com/rickgao/nifty-data/internal/model"
	"github.com/rickgao/nifty-data/internal/router"
)

// stream is an open feed: the protocol sender plus the router reading it.
type stream struct {
	feed        *connection.Feed
	router      router.Router
	accountID   string
	stopTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Subscribe(keys []string, mode model.FeedMode) error {
	return s.feed.Subscribe(keys, mode)
}

func (s *stream) Unsubscribe(keys []string, mode model.FeedMode) error {
	return s.feed.Unsubscribe(keys, mode)
}

func (s *stream) SubscribeOrders() error {
	return s.feed.SubscribeOrders(s.accountID)
}

// Close closes the socket and waits for the router to drain.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		err := s.feed.Close()

		ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
		defer cancel()
		s.closeErr = errors.Join(err, s.router.Stop(ctx))
	})
	return s.closeErr
}
