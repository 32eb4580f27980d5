package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/treasury-basis/internal/fixedincome"
	"github.com/rickgao/treasury-basis/internal/model"
)

// ParseDate parses gateway dates in YYYYMMDD or YYYY-MM-DD form.
// Returns the zero time for empty or invalid input.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FlattenFutures returns the contracts of every symbol in one slice.
func FlattenFutures(bySymbol map[string][]FuturesContract) []FuturesContract {
	var out []FuturesContract
	for _, contracts := range bySymbol {
		out = append(out, contracts...)
	}
	return out
}

// FuturesYears returns the years from the T+1 settlement of asOf to the
// contract's expiration.
func FuturesYears(fc FuturesContract, asOf time.Time) float64 {
	expiry := ParseDate(strconv.FormatInt(fc.ExpirationDate.Int(), 10))
	if expiry.IsZero() {
		return 0
	}
	return fixedincome.Term(fixedincome.SettlementDate(dateOf(asOf), 1), expiry)
}

// dateOf drops the clock so terms count whole days.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SecDefToFuture converts a security definition to a Future. Definitions
// carrying an error are rejected.
func SecDefToFuture(sd SecDef, asOf time.Time) (model.Future, bool) {
	if sd.Error != "" || sd.Conid.Int() == 0 {
		return model.Future{}, false
	}

	f := model.Future{
		Conid:              sd.Conid.Int(),
		Symbol:             sd.Ticker,
		Currency:           sd.Currency,
		FullName:           sd.FullName,
		AllExchanges:       sd.AllExchanges,
		ListingExchange:    sd.ListingExchange,
		AssetClass:         sd.AssetClass,
		Expiry:             ParseDate(sd.Expiry),
		LastTradingDay:     ParseDate(sd.LastTradingDay),
		UnderlyingConid:    sd.UnderlyingConid.Int(),
		UnderlyingExchange: sd.UnderlyingExchange,
		Multiplier:         float64(sd.Multiplier),
	}
	if f.FullName == "" {
		f.FullName = sd.Name
	}
	if len(sd.IncrementRules) > 0 {
		f.Increment = float64(sd.IncrementRules[0].Increment)
		f.IncrementLowerEdge = float64(sd.IncrementRules[0].LowerEdge)
	}
	if !f.Expiry.IsZero() {
		f.YearsToMaturity = fixedincome.Term(fixedincome.SettlementDate(dateOf(asOf), 1), f.Expiry)
	}
	return f, true
}

// SnapshotToQuote extracts the quote fields of one snapshot row.
func SnapshotToQuote(row SnapshotRow, now time.Time) (model.Quote, bool) {
	raw, ok := row["conid"]
	if !ok {
		return model.Quote{}, false
	}
	var conid Number
	if err := json.Unmarshal(raw, &conid); err != nil || conid.Int() == 0 {
		return model.Quote{}, false
	}

	return model.Quote{
		Conid:     conid.Int(),
		Last:      rawString(row[FieldLast]),
		Bid:       rawString(row[FieldBid]),
		Ask:       rawString(row[FieldAsk]),
		Volume:    rawString(row[FieldVolume]),
		Yield:     rawString(row[FieldYield]),
		UpdatedAt: now,
	}, true
}

// FieldsToQuote builds a quote from a field-code map, as carried by
// websocket market data messages.
func FieldsToQuote(conid int64, fields map[string]json.RawMessage, now time.Time) model.Quote {
	return model.Quote{
		Conid:     conid,
		Last:      rawString(fields[FieldLast]),
		Bid:       rawString(fields[FieldBid]),
		Ask:       rawString(fields[FieldAsk]),
		Volume:    rawString(fields[FieldVolume]),
		Yield:     rawString(fields[FieldYield]),
		UpdatedAt: now,
	}
}

func rawString(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return s
		}
	}
	return string(b)
}

// HistoryToBars converts a history reply to bars numbered from 1.
func HistoryToBars(conid int64, resp *HistoryResponse, yearsToMaturity float64) []model.Bar {
	if resp == nil {
		return nil
	}
	bars := make([]model.Bar, 0, len(resp.Data))
	for i, d := range resp.Data {
		bars = append(bars, model.Bar{
			Conid:           conid,
			ServerID:        resp.ServerID,
			Symbol:          resp.Symbol,
			Sequence:        i + 1,
			Time:            time.UnixMilli(d.Time).UTC(),
			Open:            d.Open,
			High:            d.High,
			Low:             d.Low,
			Close:           d.Close,
			Volume:          d.Volume,
			YearsToMaturity: yearsToMaturity,
		})
	}
	return bars
}

// OrderToLive converts a gateway order, stamping it with the fetch time.
func OrderToLive(o APIOrder, seen time.Time) model.LiveOrder {
	live := model.LiveOrder{
		OrderID:        strconv.FormatInt(o.OrderID.Int(), 10),
		Conid:          o.Conid.Int(),
		Ticker:         o.Ticker,
		Side:           o.Side,
		Status:         o.Status,
		OrderType:      o.OrderType,
		Price:          float64(o.Price),
		FilledQuantity: float64(o.FilledQuantity),
		TotalSize:      float64(o.TotalSize),
		SeenAt:         seen,
	}
	if o.RemainingQuantity != nil {
		live.RemainingQuantity = float64(*o.RemainingQuantity)
		live.HasRemaining = true
	}
	return live
}

// ReplyToAck converts an order reply.
func ReplyToAck(r OrderReply) model.OrderAck {
	return model.OrderAck{
		OrderID:     r.OrderID,
		OrderStatus: r.OrderStatus,
		MessageIDs:  r.MessageIDs,
		Messages:    r.Message,
	}
}
