package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/token-tracker/internal/model"
)

var changeEventHeader = []string{
	"timestamp", "event_type", "wallet", "token", "token_symbol", "token_mint",
	"amount", "change", "percent_change", "token_name", "price", "price_change", "usd_change",
}

var analysisHeader = []string{
	"timestamp", "action", "token", "token_symbol", "analysis", "confidence",
	"price", "change_percent", "token_mint", "token_name",
}

// ChangeEventCodec 变化事件的 CSV 列
type ChangeEventCodec struct{}

func (ChangeEventCodec) Header() []string {
	return append([]string(nil), changeEventHeader...)
}

func (ChangeEventCodec) Encode(e model.ChangeEvent) []string {
	return []string{
		formatTime(e.Timestamp),
		string(e.EventType),
		e.Wallet,
		e.Token,
		e.TokenSymbol,
		e.TokenMint,
		e.Amount.String(),
		e.Change.String(),
		e.PercentChange.String(),
		e.TokenName,
		e.Price.String(),
		e.PriceChange.String(),
		e.USDChange.String(),
	}
}

func (ChangeEventCodec) Decode(row []string) (model.ChangeEvent, error) {
	var e model.ChangeEvent
	if len(row) != len(changeEventHeader) {
		return e, fmt.Errorf("expected %d columns, got %d", len(changeEventHeader), len(row))
	}
	ts, err := parseTime(row[0])
	if err != nil {
		return e, err
	}
	typ := model.EventType(strings.ToUpper(strings.TrimSpace(row[1])))
	if !typ.Valid() {
		return e, fmt.Errorf("unknown event_type %q", row[1])
	}
	if row[2] == "" || row[5] == "" {
		return e, fmt.Errorf("wallet and token_mint are required")
	}

	p := decimalParser{}
	e = model.ChangeEvent{
		Timestamp:     ts,
		EventType:     typ,
		Wallet:        row[2],
		Token:         row[3],
		TokenSymbol:   row[4],
		TokenMint:     row[5],
		Amount:        p.parse("amount", row[6]),
		Change:        p.parse("change", row[7]),
		PercentChange: p.parse("percent_change", row[8]),
		TokenName:     row[9],
		Price:         p.parse("price", row[10]),
		PriceChange:   p.parse("price_change", row[11]),
		USDChange:     p.parse("usd_change", row[12]),
	}
	return e, p.err
}

// AnalysisCodec 分析记录的 CSV 列
type AnalysisCodec struct{}

func (AnalysisCodec) Header() []string {
	return append([]string(nil), analysisHeader...)
}

func (AnalysisCodec) Encode(r model.AnalysisRecord) []string {
	confidence := ""
	if r.Confidence != nil {
		confidence = strconv.Itoa(*r.Confidence)
	}
	changePercent := ""
	if r.ChangePercent != nil {
		changePercent = r.ChangePercent.String()
	}
	return []string{
		formatTime(r.Timestamp),
		string(r.Action),
		r.Token,
		r.TokenSymbol,
		r.Analysis,
		confidence,
		r.Price.String(),
		changePercent,
		r.TokenMint,
		r.TokenName,
	}
}

func (AnalysisCodec) Decode(row []string) (model.AnalysisRecord, error) {
	var r model.AnalysisRecord
	if len(row) != len(analysisHeader) {
		return r, fmt.Errorf("expected %d columns, got %d", len(analysisHeader), len(row))
	}
	ts, err := parseTime(row[0])
	if err != nil {
		return r, err
	}

	p := decimalParser{}
	r = model.AnalysisRecord{
		Timestamp:   ts,
		Action:      model.ParseAnalysisAction(row[1]),
		Token:       row[2],
		TokenSymbol: row[3],
		Analysis:    row[4],
		Price:       p.parse("price", row[6]),
		TokenMint:   row[8],
		TokenName:   row[9],
	}
	if s := strings.TrimSpace(row[5]); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return r, fmt.Errorf("invalid confidence %q", row[5])
		}
		v = model.ClampConfidence(v)
		r.Confidence = &v
	}
	if s := strings.TrimSpace(row[7]); s != "" {
		d := p.parse("change_percent", s)
		r.ChangePercent = &d
	}
	return r, p.err
}

// decimalParser 空单元格为 0，记录第一个解析错误
type decimalParser struct {
	err error
}

func (p *decimalParser) parse(column, s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s %q", column, s)
		}
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

var (
	_ Codec[model.ChangeEvent]    = ChangeEventCodec{}
	_ Codec[model.AnalysisRecord] = AnalysisCodec{}
)

// NewChangeLog 变化事件历史
func NewChangeLog(path string, cap int) (*Log[model.ChangeEvent], error) {
	return New[model.ChangeEvent](path, cap, ChangeEventCodec{})
}

// NewAnalysisLog 分析记录历史
func NewAnalysisLog(path string, cap int) (*Log[model.AnalysisRecord], error) {
	return New[model.AnalysisRecord](path, cap, AnalysisCodec{})
}
