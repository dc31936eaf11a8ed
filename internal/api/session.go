package api

import (
	"context"
	"fmt"

	"github.com/rickgao/nifty-data/internal/auth"
)

// Login authenticates via /QuickAuth. On success the session token is kept
// for later calls.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	payload := quickAuthPayload{
		Source:     "API",
		APKVersion: "1.0.0",
		UID:        req.UserID,
		Pwd:        auth.PasswordHash(req.Password),
		Factor2:    req.Factor2,
		VC:         req.VendorCode,
		AppKey:     auth.AppKey(req.UserID, req.APISecret),
		IMEI:       req.IMEI,
	}

	var resp quickAuthResponse
	if err := c.post(ctx, "/QuickAuth", payload, false, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	result := &LoginResult{
		OK:        resp.Stat == StatOK && resp.SUserToken != "",
		Stat:      resp.Stat,
		Message:   resp.Message,
		Token:     resp.SUserToken,
		AccountID: resp.ActID,
		UserName:  resp.UName,
	}
	if !result.OK {
		return result, nil
	}

	actid := resp.ActID
	if actid == "" {
		actid = req.UserID
	}
	c.setSession(Session{UserID: req.UserID, AccountID: actid, Token: resp.SUserToken})
	result.AccountID = actid

	c.logger.Debug("login accepted", "uid", req.UserID, "actid", actid)
	return result, nil
}

// Logout ends the session via /Logout and forgets the token, whatever the
// broker answers.
func (c *Client) Logout(ctx context.Context) (*StatusResult, error) {
	s := c.Session()
	if s.Token == "" {
		return nil, ErrNotLoggedIn
	}

	var resp statusResponse
	err := c.post(ctx, "/Logout", logoutPayload{OrderSource: "API", UID: s.UserID}, true, &resp)
	c.setSession(Session{})
	if err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}

	result := resp.result()
	return &result, nil
}
