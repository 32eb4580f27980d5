package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes a JSON number or a numeric string. The gateway is not
// consistent about which one it sends.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Int returns the number truncated to an int64.
func (n Number) Int() int64 { return int64(n) }

// AuthStatusResponse from GET /iserver/auth/status
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Competing     bool   `json:"competing"`
	Connected     bool   `json:"connected"`
	Message       string `json:"message"`
}

// TickleResponse from POST /tickle
type TickleResponse struct {
	Session string `json:"session"`
	IServer struct {
		AuthStatus AuthStatusResponse `json:"authStatus"`
	} `json:"iserver"`
}

// FuturesContract is one entry of GET /trsrv/futures.
type FuturesContract struct {
	Symbol          string `json:"symbol"`
	Conid           Number `json:"conid"`
	UnderlyingConid Number `json:"underlyingConid"`
	ExpirationDate  Number `json:"expirationDate"` // YYYYMMDD
	LastTradingDay  Number `json:"ltd"`            // YYYYMMDD
}

// IncrementRule is a tick size band of a security definition.
type IncrementRule struct {
	LowerEdge Number `json:"lowerEdge"`
	Increment Number `json:"increment"`
}

// SecDef is one entry of GET /trsrv/secdef.
type SecDef struct {
	Conid              Number          `json:"conid"`
	Currency           string          `json:"currency"`
	Ticker             string          `json:"ticker"`
	Name               string          `json:"name"`
	FullName           string          `json:"fullName"`
	AllExchanges       string          `json:"allExchanges"`
	ListingExchange    string          `json:"listingExchange"`
	AssetClass         string          `json:"assetClass"`
	Expiry             string          `json:"expiry"`
	LastTradingDay     string          `json:"lastTradingDay"`
	UnderlyingConid    Number          `json:"undConid"`
	UnderlyingExchange string          `json:"underlyingExchange"`
	Multiplier         Number          `json:"multiplier"`
	IncrementRules     []IncrementRule `json:"incrementRules"`
	Error              string          `json:"error,omitempty"`
}

// SecDefResponse from GET /trsrv/secdef
type SecDefResponse struct {
	SecDef []SecDef `json:"secdef"`
}

// SearchResult is one entry of POST /iserver/secdef/search.
type SearchResult struct {
	Conid       Number `json:"conid"`
	CompanyName string `json:"companyName"`
	Symbol      string `json:"symbol"`
}

// SnapshotRow is one entry of GET /iserver/marketdata/snapshot, keyed by
// field code.
type SnapshotRow map[string]json.RawMessage

// HistoryBar is one bar of GET /iserver/marketdata/history.
type HistoryBar struct {
	Open   float64 `json:"o"`
	Close  float64 `json:"c"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // epoch milliseconds
}

// HistoryResponse from GET /iserver/marketdata/history
type HistoryResponse struct {
	ServerID string       `json:"serverId"`
	Symbol   string       `json:"symbol"`
	Text     string       `json:"text"`
	Data     []HistoryBar `json:"data"`
}

// PnLRow is one account partition of GET /iserver/account/pnl/partitioned.
type PnLRow struct {
	RowType int     `json:"rowType"`
	DPL     float64 `json:"dpl"`
	NL      float64 `json:"nl"`
	UPL     float64 `json:"upl"`
	EL      float64 `json:"el"`
	MV      float64 `json:"mv"`
}

// PnLResponse from GET /iserver/account/pnl/partitioned
type PnLResponse struct {
	UPnL map[string]PnLRow `json:"upnl"`
}

// APIOrder is one entry of GET /iserver/account/orders.
type APIOrder struct {
	Account           string  `json:"acct"`
	Exchange          string  `json:"exchange"`
	Conidex           string  `json:"conidex"`
	Conid             Number  `json:"conid"`
	OrderID           Number  `json:"orderId"`
	Ticker            string  `json:"ticker"`
	SecType           string  `json:"secType"`
	RemainingQuantity *Number `json:"remainingQuantity"` // nil when not reported
	FilledQuantity    Number  `json:"filledQuantity"`
	TotalSize         Number  `json:"totalSize"`
	Status            string  `json:"status"`
	OrderType         string  `json:"orderType"`
	Price             Number  `json:"price"`
	TimeInForce       string  `json:"timeInForce"`
	Side              string  `json:"side"`
}

// OrdersResponse from GET /iserver/account/orders
type OrdersResponse struct {
	Orders   []APIOrder `json:"orders"`
	Snapshot bool       `json:"snapshot"`
}

// OrderReply is one entry of POST /iserver/account/{acct}/orders. The
// gateway answers either with an order id or with reply prompts.
type OrderReply struct {
	OrderID     string   `json:"order_id"`
	OrderStatus string   `json:"order_status"`
	ID          string   `json:"id"`
	Message     []string `json:"message"`
	MessageIDs  []string `json:"messageIds"`
	Error       string   `json:"error"`
}

// CancelResponse from DELETE /iserver/account/{acct}/order/{id}
type CancelResponse struct {
	OrderID Number `json:"order_id"`
	Message string `json:"msg"`
	Conid   Number `json:"conid"`
	Error   string `json:"error"`
}

// SuppressResponse from POST /iserver/questions/suppress
type SuppressResponse struct {
	Status string `json:"status"`
}
