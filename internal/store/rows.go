package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/treasury-basis/internal/model"
)

type cycleRow struct {
	ID          uuid.UUID
	Instance    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Hedges      int
	SMA         float64
	RankedPairs int
	DryRun      bool
	Error       string
}

type pairRow struct {
	Rank         int
	FrontConid   int64
	BackConid    int64
	FrontSource  string
	BackSource   string
	FrontCTD     string // CUSIP
	BackCTD      string
	FrontQty     int // Signed
	BackQty      int
	Quantity     int
	DV01Ratio    float64
	Notional     float64
	AdjNetBasis  float64
	VolumeWeight float64
	RENTD        float64
}

type riskRow struct {
	Seq              int
	FrontConid       int64
	BackConid        int64
	VaR              float64
	PositionRisk     float64
	Overlay          float64
	NetContractValue float64
	OverlayBreach    bool
	ConvexityBreach  bool
	DurationBreach   bool
	StressBreach     bool
	Passed           bool
	Stress           []byte // JSONB: [{shift, overlay}, ...]
}

type orderRow struct {
	CustomerOrderID string
	Exchange        string
	Conidex         string
	Price           float64
	Quantity        int
	OrderID         string
	OrderStatus     string
	DryRun          bool
	Cancelled       []string
}

// cycleRows holds every row written for one cycle.
type cycleRows struct {
	Cycle cycleRow
	Pairs []pairRow
	Risk  []riskRow
	Order *orderRow
}

type stressJSON struct {
	Shift   float64 `json:"shift"`
	Overlay float64 `json:"overlay"`
}

// transform converts a CycleRecord to table rows.
func transform(rec model.CycleRecord) cycleRows {
	rows := cycleRows{
		Cycle: cycleRow{
			ID:          rec.ID,
			Instance:    rec.Instance,
			StartedAt:   rec.StartedAt,
			FinishedAt:  rec.FinishedAt,
			Hedges:      rec.Hedges,
			SMA:         rec.SMA,
			RankedPairs: len(rec.Pairs),
			DryRun:      rec.DryRun,
			Error:       rec.Err,
		},
	}

	for i, p := range rec.Pairs {
		rows.Pairs = append(rows.Pairs, pairRow{
			Rank:         i + 1,
			FrontConid:   p.A.Hedge.Future.Conid,
			BackConid:    p.B.Hedge.Future.Conid,
			FrontSource:  string(p.A.Hedge.Source),
			BackSource:   string(p.B.Hedge.Source),
			FrontCTD:     p.A.Hedge.CTD.Treasury.CUSIP,
			BackCTD:      p.B.Hedge.CTD.Treasury.CUSIP,
			FrontQty:     p.A.Sign * p.A.Quantity,
			BackQty:      p.B.Sign * p.B.Quantity,
			Quantity:     p.Quantity,
			DV01Ratio:    p.DV01Ratio,
			Notional:     p.Notional,
			AdjNetBasis:  p.AdjNetBasis,
			VolumeWeight: p.VolumeWeight,
			RENTD:        p.RENTD,
		})
	}

	for i, r := range rec.Risk {
		stress := make([]stressJSON, 0, len(r.Stress))
		for _, s := range r.Stress {
			stress = append(stress, stressJSON{Shift: s.Shift, Overlay: s.Overlay})
		}
		b, err := json.Marshal(stress)
		if err != nil {
			b = []byte("[]")
		}
		rows.Risk = append(rows.Risk, riskRow{
			Seq:              i + 1,
			FrontConid:       r.FrontConid,
			BackConid:        r.BackConid,
			VaR:              r.VaR,
			PositionRisk:     r.PositionRisk,
			Overlay:          r.Overlay,
			NetContractValue: r.NetContractValue,
			OverlayBreach:    r.OverlayBreach,
			ConvexityBreach:  r.ConvexityBreach,
			DurationBreach:   r.DurationBreach,
			StressBreach:     r.StressBreach,
			Passed:           r.Passed(),
			Stress:           b,
		})
	}

	if rec.Order != nil {
		o := &orderRow{
			CustomerOrderID: rec.Order.CustomerOrderID,
			Exchange:        rec.Order.Exchange,
			Conidex:         rec.Order.Conidex,
			Price:           rec.Order.Price,
			Quantity:        rec.Order.Quantity,
			DryRun:          rec.DryRun,
			Cancelled:       rec.Cancelled,
		}
		if o.Cancelled == nil {
			o.Cancelled = []string{}
		}
		if rec.Ack != nil {
			o.OrderID = rec.Ack.OrderID
			o.OrderStatus = rec.Ack.OrderStatus
		}
		rows.Order = o
	}
	return rows
}
