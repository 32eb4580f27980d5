package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SecDefBatchSize is the number of conids per security definition request.
const SecDefBatchSize = 50

// ErrNotFound is returned when a lookup matches no contract.
var ErrNotFound = errors.New("contract not found")

// GetFutures lists the futures contracts of each symbol.
func (c *Client) GetFutures(ctx context.Context, symbols []string) (map[string][]FuturesContract, error) {
	query := url.Values{}
	query.Set("symbols", strings.Join(symbols, ","))

	resp := make(map[string][]FuturesContract)
	if err := c.get(ctx, "/trsrv/futures", query, &resp); err != nil {
		return nil, fmt.Errorf("get futures: %w", err)
	}
	return resp, nil
}

// GetSecDefs fetches security definitions in batches. A failed batch is
// logged and skipped.
func (c *Client) GetSecDefs(ctx context.Context, conids []int64) ([]SecDef, error) {
	var defs []SecDef

	for start := 0; start < len(conids); start += SecDefBatchSize {
		end := min(start+SecDefBatchSize, len(conids))

		query := url.Values{}
		query.Set("conids", joinConids(conids[start:end]))

		var resp SecDefResponse
		if err := c.get(ctx, "/trsrv/secdef", query, &resp); err != nil {
			if ctx.Err() != nil {
				return defs, ctx.Err()
			}
			c.logger.Error("secdef batch failed", "start", start, "size", end-start, "error", err)
			continue
		}
		defs = append(defs, resp.SecDef...)
	}

	c.logger.Debug("fetched security definitions", "requested", len(conids), "received", len(defs))
	return defs, nil
}

// SearchSecDef returns the first conid matching symbol, which may be a CUSIP.
func (c *Client) SearchSecDef(ctx context.Context, symbol string) (int64, error) {
	var results []SearchResult
	if err := c.post(ctx, "/iserver/secdef/search", map[string]string{"symbol": symbol}, &results); err != nil {
		return 0, fmt.Errorf("search secdef %s: %w", symbol, err)
	}
	if len(results) == 0 || results[0].Conid.Int() == 0 {
		return 0, fmt.Errorf("search secdef %s: %w", symbol, ErrNotFound)
	}
	return results[0].Conid.Int(), nil
}

func joinConids(conids []int64) string {
	parts := make([]string, len(conids))
	for i, id := range conids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
