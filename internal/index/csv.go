package index

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/renameio/v2"

	"github.com/rickgao/treasury-basis/internal/model"
)

const dateLayout = "2006-01-02"

// TreasuryDTO is one row of the UST index file.
type TreasuryDTO struct {
	Conid            string `csv:"conid"`
	CorpusConid      string `csv:"corpusCusip_conid"`
	CUSIP            string `csv:"cusip"`
	CorpusCUSIP      string `csv:"corpusCusip"`
	SecurityType     string `csv:"security_type"`
	OTRIssue         string `csv:"otr_issue"`
	OriginalMaturity string `csv:"original_maturity"`
	Coupon           string `csv:"coupon"`
	IssueDate        string `csv:"issue_date"`
	MaturityDate     string `csv:"maturity_date"`
	PrevCoupon       string `csv:"prev_coupon"`
	NextCoupon       string `csv:"next_coupon"`
	YearsToMaturity  string `csv:"years_to_maturity"`
	AdjustedIssuance string `csv:"adjusted_issuance_billions"`
	OriginalIssuance string `csv:"original_issuance_billions"`
	CF               string `csv:"conversion_factor"`
}

// ToModel converts the row. Unparseable numbers and dates become zero.
func (dto TreasuryDTO) ToModel() model.Treasury {
	return model.Treasury{
		Conid:            parseInt(dto.Conid),
		CorpusConid:      parseInt(dto.CorpusConid),
		CUSIP:            strings.TrimSpace(dto.CUSIP),
		CorpusCUSIP:      strings.TrimSpace(dto.CorpusCUSIP),
		SecurityType:     dto.SecurityType,
		OTRIssue:         dto.OTRIssue,
		OriginalMaturity: dto.OriginalMaturity,
		Coupon:           parseFloat(dto.Coupon),
		IssueDate:        parseDate(dto.IssueDate),
		MaturityDate:     parseDate(dto.MaturityDate),
		PrevCoupon:       parseDate(dto.PrevCoupon),
		NextCoupon:       parseDate(dto.NextCoupon),
		YearsToMaturity:  parseFloat(dto.YearsToMaturity),
		AdjustedIssuance: parseFloat(dto.AdjustedIssuance),
		OriginalIssuance: parseFloat(dto.OriginalIssuance),
		CF:               parseFloat(dto.CF),
	}
}

// NewTreasuryDTO converts a Treasury for writing.
func NewTreasuryDTO(t model.Treasury) TreasuryDTO {
	return TreasuryDTO{
		Conid:            formatInt(t.Conid),
		CorpusConid:      formatInt(t.CorpusConid),
		CUSIP:            t.CUSIP,
		CorpusCUSIP:      t.CorpusCUSIP,
		SecurityType:     t.SecurityType,
		OTRIssue:         t.OTRIssue,
		OriginalMaturity: t.OriginalMaturity,
		Coupon:           formatFloat(t.Coupon),
		IssueDate:        formatDate(t.IssueDate),
		MaturityDate:     formatDate(t.MaturityDate),
		PrevCoupon:       formatDate(t.PrevCoupon),
		NextCoupon:       formatDate(t.NextCoupon),
		YearsToMaturity:  formatFloat(t.YearsToMaturity),
		AdjustedIssuance: formatFloat(t.AdjustedIssuance),
		OriginalIssuance: formatFloat(t.OriginalIssuance),
		CF:               formatFloat(t.CF),
	}
}

// FutureDTO is one row of the futures index file.
type FutureDTO struct {
	Conid              string `csv:"conid"`
	Symbol             string `csv:"ticker"`
	Currency           string `csv:"currency"`
	FullName           string `csv:"full_name"`
	AllExchanges       string `csv:"all_exchanges"`
	ListingExchange    string `csv:"listing_exchange"`
	AssetClass         string `csv:"asset_class"`
	Expiry             string `csv:"expiry"`
	LastTradingDay     string `csv:"last_trading_day"`
	UnderlyingConid    string `csv:"underlying_conid"`
	UnderlyingExchange string `csv:"underlying_exchange"`
	Multiplier         string `csv:"multiplier"`
	Increment          string `csv:"increment"`
	IncrementLowerEdge string `csv:"increment_lower_edge"`
	YearsToMaturity    string `csv:"year_to_maturity"`
}

// ToModel converts the row.
func (dto FutureDTO) ToModel() model.Future {
	return model.Future{
		Conid:              parseInt(dto.Conid),
		Symbol:             strings.TrimSpace(dto.Symbol),
		Currency:           dto.Currency,
		FullName:           dto.FullName,
		AllExchanges:       dto.AllExchanges,
		ListingExchange:    dto.ListingExchange,
		AssetClass:         dto.AssetClass,
		Expiry:             parseDate(dto.Expiry),
		LastTradingDay:     parseDate(dto.LastTradingDay),
		UnderlyingConid:    parseInt(dto.UnderlyingConid),
		UnderlyingExchange: dto.UnderlyingExchange,
		Multiplier:         parseFloat(dto.Multiplier),
		Increment:          parseFloat(dto.Increment),
		IncrementLowerEdge: parseFloat(dto.IncrementLowerEdge),
		YearsToMaturity:    parseFloat(dto.YearsToMaturity),
	}
}

// NewFutureDTO converts a Future for writing.
func NewFutureDTO(f model.Future) FutureDTO {
	return FutureDTO{
		Conid:              formatInt(f.Conid),
		Symbol:             f.Symbol,
		Currency:           f.Currency,
		FullName:           f.FullName,
		AllExchanges:       f.AllExchanges,
		ListingExchange:    f.ListingExchange,
		AssetClass:         f.AssetClass,
		Expiry:             formatDate(f.Expiry),
		LastTradingDay:     formatDate(f.LastTradingDay),
		UnderlyingConid:    formatInt(f.UnderlyingConid),
		UnderlyingExchange: f.UnderlyingExchange,
		Multiplier:         formatFloat(f.Multiplier),
		Increment:          formatFloat(f.Increment),
		IncrementLowerEdge: formatFloat(f.IncrementLowerEdge),
		YearsToMaturity:    formatFloat(f.YearsToMaturity),
	}
}

// BarDTO is one row of a historical file. A row with only conid and
// year_to_maturity set records a contract with no history.
type BarDTO struct {
	Conid           string `csv:"conid"`
	ServerID        string `csv:"serverId"`
	Symbol          string `csv:"symbol"`
	Sequence        string `csv:"sequence"`
	Time            string `csv:"time"`
	Open            string `csv:"o"`
	High            string `csv:"h"`
	Low             string `csv:"l"`
	Close           string `csv:"c"`
	Volume          string `csv:"v"`
	YearsToMaturity string `csv:"year_to_maturity"`
}

// ToModel converts the row.
func (dto BarDTO) ToModel() model.Bar {
	b := model.Bar{
		Conid:           parseInt(dto.Conid),
		ServerID:        dto.ServerID,
		Symbol:          dto.Symbol,
		Sequence:        int(parseInt(dto.Sequence)),
		Open:            parseFloat(dto.Open),
		High:            parseFloat(dto.High),
		Low:             parseFloat(dto.Low),
		Close:           parseFloat(dto.Close),
		Volume:          parseFloat(dto.Volume),
		YearsToMaturity: parseFloat(dto.YearsToMaturity),
	}
	if ms := parseInt(dto.Time); ms != 0 {
		b.Time = time.UnixMilli(ms).UTC()
	}
	return b
}

// NewBarDTO converts a Bar for writing.
func NewBarDTO(b model.Bar) BarDTO {
	dto := BarDTO{
		Conid:           formatInt(b.Conid),
		ServerID:        b.ServerID,
		Symbol:          b.Symbol,
		YearsToMaturity: formatFloat(b.YearsToMaturity),
	}
	if IsEmptyBar(b) {
		return dto
	}
	dto.Sequence = strconv.Itoa(b.Sequence)
	dto.Time = formatInt(b.Time.UnixMilli())
	dto.Open = formatFloat(b.Open)
	dto.High = formatFloat(b.High)
	dto.Low = formatFloat(b.Low)
	dto.Close = formatFloat(b.Close)
	dto.Volume = formatFloat(b.Volume)
	return dto
}

// IsEmptyBar reports whether b is a placeholder for a contract without history.
func IsEmptyBar(b model.Bar) bool {
	return b.Sequence == 0 && b.Time.IsZero() && b.Close == 0
}

// LoadTreasuries reads the UST index file.
func LoadTreasuries(path string) ([]model.Treasury, error) {
	var rows []TreasuryDTO
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Treasury, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToModel())
	}
	return out, nil
}

// SaveTreasuries atomically writes the UST index file.
func SaveTreasuries(path string, ts []model.Treasury) error {
	rows := make([]TreasuryDTO, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, NewTreasuryDTO(t))
	}
	return marshalFile(path, &rows)
}

// LoadFutures reads the futures index file.
func LoadFutures(path string) ([]model.Future, error) {
	var rows []FutureDTO
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Future, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToModel())
	}
	return out, nil
}

// SaveFutures atomically writes the futures index file.
func SaveFutures(path string, fs []model.Future) error {
	rows := make([]FutureDTO, 0, len(fs))
	for _, f := range fs {
		rows = append(rows, NewFutureDTO(f))
	}
	return marshalFile(path, &rows)
}

// LoadBars reads a historical file.
func LoadBars(path string) ([]model.Bar, error) {
	var rows []BarDTO
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToModel())
	}
	return out, nil
}

// SaveBars atomically writes a historical file.
func SaveBars(path string, bars []model.Bar) error {
	rows := make([]BarDTO, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, NewBarDTO(b))
	}
	return marshalFile(path, &rows)
}

func unmarshalFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalCSV(newConidReader(f), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func marshalFile(path string, in any) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending %s: %w", path, err)
	}
	defer pending.Cleanup()

	if err := gocsv.Marshal(in, pending); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// Files written by other tools may carry integer ids as "123.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "20060102", "01/02/06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
