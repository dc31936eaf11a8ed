package connection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/nifty-data/internal/model"
)

// Feed sends Noren feed requests over a Client.
type Feed struct {
	client Client
	logger *slog.Logger
}

// NewFeed wraps a connected Client.
func NewFeed(client Client, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{client: client, logger: logger}
}

// Login sends the connect frame. The feed answers with a "ck" frame.
func (f *Feed) Login(uid, actid, token string) error {
	return f.send(ConnectMessage{
		T:          TypeConnect,
		UID:        uid,
		ActID:      actid,
		SUserToken: token,
		Source:     "API",
	})
}

// Subscribe subscribes keys ("EXCH|TOKEN") in the given mode.
func (f *Feed) Subscribe(keys []string, mode model.FeedMode) error {
	t := TypeSubscribeTouchline
	if mode == model.FeedDepth {
		t = TypeSubscribeDepth
	}
	if err := f.send(SubscriptionMessage{T: t, K: JoinKeys(keys)}); err != nil {
		return fmt.Errorf("subscribe %s: %w", mode, err)
	}
	f.logger.Debug("subscribe sent", "keys", keys, "mode", mode)
	return nil
}

// Unsubscribe removes keys previously subscribed in the given mode.
func (f *Feed) Unsubscribe(keys []string, mode model.FeedMode) error {
	t := TypeUnsubTouchline
	if mode == model.FeedDepth {
		t = TypeUnsubDepth
	}
	if err := f.send(SubscriptionMessage{T: t, K: JoinKeys(keys)}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", mode, err)
	}
	return nil
}

// SubscribeOrders subscribes to order updates for an account.
func (f *Feed) SubscribeOrders(actid string) error {
	if err := f.send(OrderSubscriptionMessage{T: TypeSubscribeOrders, ActID: actid}); err != nil {
		return fmt.Errorf("subscribe orders: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (f *Feed) Close() error {
	return f.client.Close()
}

func (f *Feed) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.client.Send(data)
}

// JoinKeys joins subscription keys the way the feed expects: "NSE|26000#NSE|26009".
func JoinKeys(keys []string) string {
	return strings.Join(keys, "#")
}
