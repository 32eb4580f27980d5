package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Instrument Types
// -----------------------------------------------------------------------------

// Future represents a CME Treasury futures contract with its latest quote.
type Future struct {
	Conid              int64     // Gateway contract id
	Symbol             string    // Root ticker (e.g., "ZN")
	Currency           string    // Settlement currency
	FullName           string    // Display name
	AllExchanges       string    // Comma separated exchanges
	ListingExchange    string    // Primary listing exchange
	AssetClass         string    // "FUT"
	Expiry             time.Time // Contract expiration date
	LastTradingDay     time.Time // Last trading day
	UnderlyingConid    int64     // Underlying contract id
	UnderlyingExchange string    // Exchange used for fee lookup
	Multiplier         float64   // Contract multiplier
	Increment          float64   // Minimum price increment
	IncrementLowerEdge float64   // Lower edge of the first increment rule
	YearsToMaturity    float64   // Years from T+1 settlement to expiry

	// Current market (decimal prices, 0 when absent)
	Bid    float64
	Ask    float64
	Last   float64
	Price  float64 // Bid, falling back to Last
	Volume float64 // Session volume in contracts
	Closed bool    // Last quote carried the closed marker
}

// Treasury represents a deliverable Treasury note or bond with its latest quote.
type Treasury struct {
	Conid            int64     // Gateway contract id for the CUSIP
	CorpusConid      int64     // Gateway contract id for the corpus (STRIPS) CUSIP
	CUSIP            string    // Security CUSIP
	CorpusCUSIP      string    // Principal STRIPS CUSIP
	SecurityType     string    // Note or Bond
	OTRIssue         string    // On-the-run issue label from the CME workbook
	OriginalMaturity string    // Original term (e.g., "10-Year")
	Coupon           float64   // Annual coupon, percent
	IssueDate        time.Time // Issue date
	MaturityDate     time.Time // Maturity date
	PrevCoupon       time.Time // Coupon date on or before today
	NextCoupon       time.Time // Coupon date after today
	YearsToMaturity  float64   // Years from today to maturity
	AdjustedIssuance float64   // Billions
	OriginalIssuance float64   // Billions
	CF               float64   // CME conversion factor, 0 when unknown

	// Current market (decimal prices, 0 when absent)
	Bid      float64
	Ask      float64
	Last     float64
	Price    float64 // Bid, falling back to Last
	Yield    float64 // Quoted yield, decimal
	HasYield bool    // Yield was quoted
	Closed   bool    // Last quote carried the closed marker
}

// Quote is a market data update for one contract.
//
// Raw fields hold the gateway strings as received, including closed markers
// ("C134'16") and volume suffixes ("1.2K").
type Quote struct {
	Conid     int64
	Last      string
	Bid       string
	Ask       string
	Volume    string
	Yield     string
	UpdatedAt time.Time
}

// Bar is one historical bar for a contract.
type Bar struct {
	Conid           int64
	ServerID        string
	Symbol          string
	Sequence        int
	Time            time.Time
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
	YearsToMaturity float64
}

// -----------------------------------------------------------------------------
// Analytics Types
// -----------------------------------------------------------------------------

// PriceSource names the quote a hedge row was priced from.
type PriceSource string

const (
	SourceBid  PriceSource = "bid"
	SourceAsk  PriceSource = "ask"
	SourceLast PriceSource = "last"
)

// Analytics are the rate sensitivities of a CTD or, divided by the conversion
// factor, of its future.
type Analytics struct {
	Price            float64
	ModifiedDuration float64
	MacaulayDuration float64
	DV01             float64
	ApproxDuration   float64
	ApproxConvexity  float64
}

// CTD is the cheapest-to-deliver Treasury chosen for a futures row.
type CTD struct {
	Treasury     Treasury
	Price        float64 // Market price used in the IRR
	Yield        float64 // Quoted or solved yield, decimal
	Term         float64 // Years to maturity rounded to the half year
	IRR          float64 // Implied repo rate of delivering this Treasury
	ModelPrice   float64 // Price at Yield over Term
	ImpliedYield float64 // Yield solved back from ModelPrice
	Analytics    Analytics
}

// Hedge is one priced futures row paired with its CTD.
type Hedge struct {
	Future           Future
	Source           PriceSource
	Price            float64 // Futures price for this row
	TheoreticalPrice float64 // CTD model price over CF
	CTD              CTD
	Analytics        Analytics // CTD analytics over CF
}

// Basis holds the SIA basis measures of one pair leg.
type Basis struct {
	AccruedInterest float64
	DirtyPrice      float64
	Days            int
	GrossBasis      float64
	ImpliedRepo     float64
	ConvexityYield  float64
	Carry           float64
	NetBasis        float64
}

// Leg is one side of a hedge pair.
type Leg struct {
	Hedge    Hedge
	Basis    Basis
	Sign     int // +1 or -1
	Quantity int // Contracts at full size, >= 1
}

// Ratio returns the signed leg ratio within a combo order of size qty.
func (l Leg) Ratio(qty int) int {
	if qty <= 0 {
		qty = 1
	}
	return l.Sign * l.Quantity / qty
}

// Pair is an ordered combination of two hedges with distinct CTDs.
type Pair struct {
	A, B         Leg
	CostA        float64 // Multiplier times price, leg A
	CostB        float64 // Multiplier times price, leg B
	DV01Ratio    float64 // A futures DV01 over B futures DV01
	Notional     float64 // Signed row notional
	AdjNetBasis  float64 // A net basis times qA less B net basis times qB
	VolumeWeight float64 // Mean log-volume weight
	RENTD        float64 // AdjNetBasis times VolumeWeight
	Quantity     int     // Combo order quantity (gcd of leg quantities)
}

// Key identifies a pair by its futures contracts.
func (p Pair) Key() [2]int64 {
	return [2]int64{p.A.Hedge.Future.Conid, p.B.Hedge.Future.Conid}
}

// StressPoint is the overlay under one stressed yield shift.
type StressPoint struct {
	Shift   float64
	Overlay float64
}

// RiskResult is the pre-trade risk evaluation of one pair.
type RiskResult struct {
	FrontConid       int64
	BackConid        int64
	VaR              float64
	PositionRisk     float64
	Overlay          float64 // One basis point DV01 overlay
	NetContractValue float64
	OverlayBreach    bool
	ConvexityBreach  bool
	DurationBreach   bool
	StressBreach     bool
	Stress           []StressPoint
}

// Passed reports whether the pair cleared every check.
func (r RiskResult) Passed() bool {
	return !r.OverlayBreach && !r.ConvexityBreach && !r.DurationBreach && !r.StressBreach
}

// -----------------------------------------------------------------------------
// Order Types
// -----------------------------------------------------------------------------

// ComboOrder is a spread order for two futures legs.
type ComboOrder struct {
	CustomerOrderID string  `json:"cOID"`
	Exchange        string  `json:"exchange"`
	Conidex         string  `json:"conidex"`
	OrderType       string  `json:"orderType"`
	Price           float64 `json:"price"`
	Side            string  `json:"side"`
	TIF             string  `json:"tif"`
	Quantity        int     `json:"quantity"`
	SecType         string  `json:"secType"`
	OutsideRTH      bool    `json:"outsideRTH"`
}

// LiveOrder is an order reported by the gateway.
type LiveOrder struct {
	OrderID           string
	Conid             int64
	Ticker            string
	Side              string
	Status            string
	OrderType         string
	Price             float64
	RemainingQuantity float64
	HasRemaining      bool // Gateway reported remainingQuantity
	FilledQuantity    float64
	TotalSize         float64
	SeenAt            time.Time // Client-side timestamp of the fetch
}

// OrderAck is the gateway reply to an order submission.
type OrderAck struct {
	OrderID     string
	OrderStatus string
	MessageIDs  []string // Reply prompts raised instead of an order id
	Messages    []string
}

// -----------------------------------------------------------------------------
// Cycle Types
// -----------------------------------------------------------------------------

// CycleRecord captures one business cycle for persistence and reporting.
type CycleRecord struct {
	ID         uuid.UUID
	Instance   string
	StartedAt  time.Time
	FinishedAt time.Time
	Hedges     int
	SMA        float64
	Pairs      []Pair       // Ranked, best first
	Risk       []RiskResult // In evaluation order
	Selected   *Pair
	Order      *ComboOrder
	Ack        *OrderAck
	Cancelled  []string // Order ids cancelled during cleanup
	DryRun     bool
	Err        string
}
