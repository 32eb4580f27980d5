package api

import (
	"context"
	"fmt"
)

// AuthStatus reports whether the gateway holds an authenticated brokerage session.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatusResponse, error) {
	var resp AuthStatusResponse
	if err := c.get(ctx, "/iserver/auth/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get auth status: %w", err)
	}
	return &resp, nil
}

// Tickle keeps the gateway session alive and returns the session token used
// by the websocket.
func (c *Client) Tickle(ctx context.Context) (*TickleResponse, error) {
	var resp TickleResponse
	if err := c.post(ctx, "/tickle", nil, &resp); err != nil {
		return nil, fmt.Errorf("tickle: %w", err)
	}
	return &resp, nil
}
