package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Topic prefixes of market data messages.
const (
	subscribePrefix   = "smd+"
	unsubscribePrefix = "umd+"
)

// SubscribeMessage formats a market data subscription, e.g.
// smd+265598+{"fields":["31","84"]}.
func SubscribeMessage(conid int64, fields []string) ([]byte, error) {
	args, err := json.Marshal(struct {
		Fields []string `json:"fields"`
	}{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return []byte(subscribePrefix + strconv.FormatInt(conid, 10) + "+" + string(args)), nil
}

// UnsubscribeMessage formats a market data cancellation.
func UnsubscribeMessage(conid int64) []byte {
	return []byte(unsubscribePrefix + strconv.FormatInt(conid, 10) + "+{}")
}

// ParseUpdate extracts the quote fields of an smd+<conid> message. It
// reports false for other topics (system, sts, heartbeats) and malformed data.
func ParseUpdate(data []byte, receivedAt time.Time) (model.Quote, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return model.Quote{}, false
	}

	var topic string
	raw, ok := fields["topic"]
	if !ok || json.Unmarshal(raw, &topic) != nil {
		return model.Quote{}, false
	}
	rest, ok := strings.CutPrefix(topic, subscribePrefix)
	if !ok {
		return model.Quote{}, false
	}
	conid, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || conid == 0 {
		return model.Quote{}, false
	}

	return api.FieldsToQuote(conid, fields, receivedAt), true
}

// Merge overlays the non-empty fields of upd on prev. Gateway updates only
// carry the fields that changed.
func Merge(prev, upd model.Quote) model.Quote {
	out := prev
	out.Conid = upd.Conid
	out.UpdatedAt = upd.UpdatedAt
	if upd.Last != "" {
		out.Last = upd.Last
	}
	if upd.Bid != "" {
		out.Bid = upd.Bid
	}
	if upd.Ask != "" {
		out.Ask = upd.Ask
	}
	if upd.Volume != "" {
		out.Volume = upd.Volume
	}
	if upd.Yield != "" {
		out.Yield = upd.Yield
	}
	return out
}
