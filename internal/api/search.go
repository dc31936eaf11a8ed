package api

import (
	"context"
	"fmt"
	"net/url"
)

// SearchScrip searches an exchange for instruments matching text.
func (c *Client) SearchScrip(ctx context.Context, exchange, text string) (*SearchResult, error) {
	payload := searchScripPayload{
		UID:   c.Session().UserID,
		Exch:  exchange,
		SText: url.QueryEscape(text),
	}

	var resp searchScripResponse
	if err := c.post(ctx, "/SearchScrip", payload, true, &resp); err != nil {
		return nil, fmt.Errorf("search scrip %q: %w", text, err)
	}

	return &SearchResult{
		OK:      resp.Stat == StatOK,
		Stat:    resp.Stat,
		Message: resp.Message,
		Values:  resp.Values,
	}, nil
}
