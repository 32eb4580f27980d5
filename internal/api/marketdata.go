package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/treasury-basis/internal/model"
)

// Snapshot field codes.
const (
	FieldLast   = "31"
	FieldBid    = "84"
	FieldAsk    = "86"
	FieldVolume = "87"
	FieldYield  = "7698"
)

// DefaultFields are requested by Snapshot when no fields are given.
var DefaultFields = []string{FieldLast, FieldBid, FieldAsk, FieldVolume, FieldYield}

// SnapshotBatchSize is the number of conids per snapshot request.
const SnapshotBatchSize = 500

// Snapshot fetches market data for conids in batches. A failed batch is
// logged and skipped. Rows without a conid are dropped.
func (c *Client) Snapshot(ctx context.Context, conids []int64, fields []string) ([]model.Quote, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	fieldList := strings.Join(fields, ",")

	var quotes []model.Quote
	for start := 0; start < len(conids); start += SnapshotBatchSize {
		end := min(start+SnapshotBatchSize, len(conids))

		query := url.Values{}
		query.Set("conids", joinConids(conids[start:end]))
		query.Set("fields", fieldList)
		query.Set("live", "true")

		var rows []SnapshotRow
		if err := c.get(ctx, "/iserver/marketdata/snapshot", query, &rows); err != nil {
			if ctx.Err() != nil {
				return quotes, ctx.Err()
			}
			c.logger.Error("snapshot batch failed", "start", start, "size", end-start, "error", err)
			continue
		}

		now := c.now()
		for _, row := range rows {
			if q, ok := SnapshotToQuote(row, now); ok {
				quotes = append(quotes, q)
			}
		}
	}

	return quotes, nil
}

// History fetches historical bars for one contract, regular trading hours only.
func (c *Client) History(ctx context.Context, conid int64, period, bar string) (*HistoryResponse, error) {
	query := url.Values{}
	query.Set("conid", strconv.FormatInt(conid, 10))
	query.Set("period", period)
	query.Set("bar", bar)
	query.Set("outsideRth", "false")

	var resp HistoryResponse
	if err := c.get(ctx, "/iserver/marketdata/history", query, &resp); err != nil {
		return nil, fmt.Errorf("get history %d: %w", conid, err)
	}
	return &resp, nil
}
