package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/treasury-basis/internal/model"
)

// LiveOrders lists the orders the gateway is tracking for the session.
func (c *Client) LiveOrders(ctx context.Context) ([]model.LiveOrder, error) {
	var resp OrdersResponse
	if err := c.get(ctx, "/iserver/account/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("get live orders: %w", err)
	}

	seen := c.now()
	orders := make([]model.LiveOrder, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orders = append(orders, OrderToLive(o, seen))
	}
	return orders, nil
}

// PlaceOrders submits orders for the account. Replies that ask for
// confirmation come back as acks carrying message ids.
func (c *Client) PlaceOrders(ctx context.Context, account string, orders []model.ComboOrder) ([]model.OrderAck, error) {
	body := map[string][]model.ComboOrder{"orders": orders}

	var replies []OrderReply
	path := "/iserver/account/" + url.PathEscape(account) + "/orders"
	if err := c.post(ctx, path, body, &replies); err != nil {
		return nil, fmt.Errorf("place orders: %w", err)
	}

	acks := make([]model.OrderAck, 0, len(replies))
	for _, r := range replies {
		if r.Error != "" {
			return acks, fmt.Errorf("place orders: %s", r.Error)
		}
		acks = append(acks, ReplyToAck(r))
	}
	return acks, nil
}

// CancelOrder cancels one order.
func (c *Client) CancelOrder(ctx context.Context, account, orderID string) error {
	var resp CancelResponse
	path := "/iserver/account/" + url.PathEscape(account) + "/order/" + url.PathEscape(orderID)
	if err := c.del(ctx, path, &resp); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("cancel order %s: %s", orderID, resp.Error)
	}
	return nil
}

// SuppressMessages stops the gateway from raising the given reply prompts.
func (c *Client) SuppressMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var resp SuppressResponse
	if err := c.post(ctx, "/iserver/questions/suppress", map[string][]string{"messageIds": ids}, &resp); err != nil {
		return fmt.Errorf("suppress messages: %w", err)
	}
	return nil
}
