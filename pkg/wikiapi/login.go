package wikiapi

import (
	"context"
	"fmt"
	"net/url"
)

type tokenResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
		} `json:"tokens"`
	} `json:"query"`
}

type loginResponse struct {
	Login struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
	} `json:"login"`
}

// Login establishes a session with the configured credentials. It runs at
// most once successfully per client and is a no-op for anonymous clients.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" {
		return nil
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.loggedIn {
		return nil
	}

	err := c.execute(func() error {
		var tokens tokenResponse
		params := url.Values{
			"action": {"query"},
			"meta":   {"tokens"},
			"type":   {"login"},
		}
		if err := c.getJSON(ctx, params, &tokens); err != nil {
			return err
		}
		if tokens.Query.Tokens.LoginToken == "" {
			return fmt.Errorf("%w: no login token returned", ErrResponse)
		}

		var login loginResponse
		form := url.Values{
			"action":     {"login"},
			"lgname":     {c.username},
			"lgpassword": {c.password},
			"lgtoken":    {tokens.Query.Tokens.LoginToken},
		}
		if err := c.postJSON(ctx, form, &login); err != nil {
			return err
		}
		if login.Login.Result != "Success" {
			return fmt.Errorf("%w: %s %s", ErrLogin, login.Login.Result, login.Login.Reason)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.loggedIn = true
	c.logger.Debug("logged in to wiki", "api", c.apiURL, "user", c.username)
	return nil
}
