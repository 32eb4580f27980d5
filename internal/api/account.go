package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoNetLiquidation is returned when the PnL reply has no core partition
// for the account.
var ErrNoNetLiquidation = errors.New("net liquidation not reported")

// NetLiquidation returns the net liquidation value of the account's core
// partition.
func (c *Client) NetLiquidation(ctx context.Context, account string) (float64, error) {
	var resp PnLResponse
	if err := c.get(ctx, "/iserver/account/pnl/partitioned", nil, &resp); err != nil {
		return 0, fmt.Errorf("get pnl: %w", err)
	}

	row, ok := resp.UPnL[account+".Core"]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", account, ErrNoNetLiquidation)
	}
	return row.NL, nil
}
