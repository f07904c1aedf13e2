package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ninja0404/token-tracker/internal/common"
	"github.com/ninja0404/token-tracker/internal/model"
)

func changeEvent(i int) model.ChangeEvent {
	return model.ChangeEvent{
		Timestamp:     time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		EventType:     model.EventModified,
		Wallet:        "W1",
		Token:         "Token",
		TokenSymbol:   "TKN",
		TokenMint:     fmt.Sprintf("M%d", i),
		TokenName:     "Token",
		Amount:        decimal.NewFromInt(int64(i)),
		Change:        decimal.NewFromInt(1),
		PercentChange: decimal.RequireFromString("12.5"),
		Price:         decimal.RequireFromString("0.0001"),
		PriceChange:   decimal.Zero,
		USDChange:     decimal.RequireFromString("-3.25"),
	}
}

func newChangeLog(t *testing.T, cap int) *Log[model.ChangeEvent] {
	t.Helper()
	l, err := NewChangeLog(filepath.Join(t.TempDir(), "changes.csv"), cap)
	require.NoError(t, err)
	return l
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := NewChangeLog(filepath.Join(t.TempDir(), "x.csv"), 0)
	assert.True(t, errors.Is(err, common.ErrConfiguration))

	_, err = NewAnalysisLog("", DefaultCap)
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}

func TestAppend26KeepsNewest25(t *testing.T) {
	l := newChangeLog(t, DefaultCap)
	for i := 1; i <= 26; i++ {
		require.NoError(t, l.Append(changeEvent(i)))
	}

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 25)
	assert.Equal(t, "M26", records[0].TokenMint)
	assert.Equal(t, "M2", records[24].TokenMint)
	for _, r := range records {
		assert.NotEqual(t, "M1", r.TokenMint)
	}
	assert.Equal(t, 25, l.Len())
}

func TestAppendBatchLastIsNewest(t *testing.T) {
	l := newChangeLog(t, 3)
	require.NoError(t, l.Append(changeEvent(1)))
	require.NoError(t, l.Append(changeEvent(2), changeEvent(3), changeEvent(4)))
	require.NoError(t, l.Append())

	records, err := l.LoadAll()
	require.NoError(t, err)
	mints := []string{}
	for _, r := range records {
		mints = append(mints, r.TokenMint)
	}
	assert.Equal(t, []string{"M4", "M3", "M2"}, mints)
}

func TestChangeEventRoundTrip(t *testing.T) {
	l := newChangeLog(t, DefaultCap)
	e := changeEvent(7)
	e.Token = `Quote "and", comma`
	require.NoError(t, l.Append(e))

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, e.Token, got.Token)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
	assert.True(t, e.PercentChange.Equal(got.PercentChange))
	assert.True(t, e.USDChange.Equal(got.USDChange))

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	firstLine := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Equal(t, "timestamp,event_type,wallet,token,token_symbol,token_mint,amount,change,percent_change,token_name,price,price_change,usd_change", firstLine)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	l := newChangeLog(t, DefaultCap)
	content := strings.Join([]string{
		strings.Join(changeEventHeader, ","),
		"2024-01-01T00:00:01Z,NEW,W1,Tok,TOK,M1,1,1,0,Tok,2,0,2",
		"not-a-time,NEW,W1,Tok,TOK,M2,1,1,0,Tok,2,0,2",
		"2024-01-01T00:00:03Z,BOGUS,W1,Tok,TOK,M3,1,1,0,Tok,2,0,2",
		"2024-01-01T00:00:04Z,REMOVED,W1,Tok,TOK,M4,abc,1,0,Tok,2,0,2",
		"short,row",
		"2024-01-01T00:00:05Z,removed,W1,Tok,TOK,M5,,,,Tok,,,",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(l.Path(), []byte(content), 0o644))

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "M1", records[0].TokenMint)
	assert.Equal(t, "M5", records[1].TokenMint)
	assert.Equal(t, model.EventRemoved, records[1].EventType)
	assert.True(t, records[1].Amount.IsZero())
}

func TestLoadReordersColumns(t *testing.T) {
	l, err := NewAnalysisLog(filepath.Join(t.TempDir(), "analysis.csv"), DefaultCap)
	require.NoError(t, err)
	content := "action,timestamp,token\nbuy,2024-02-02 10:00:00,Bonk\n"
	require.NoError(t, os.WriteFile(l.Path(), []byte(content), 0o644))

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ActionBuy, records[0].Action)
	assert.Equal(t, "Bonk", records[0].Token)
	assert.Nil(t, records[0].Confidence)
	assert.Nil(t, records[0].ChangePercent)
}

func TestLoadMissingAndClearIdempotent(t *testing.T) {
	l := newChangeLog(t, DefaultCap)
	records, err := l.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, l.Clear())
	require.NoError(t, l.Append(changeEvent(1)))
	require.NoError(t, l.Clear())
	require.NoError(t, l.Clear())
	assert.Equal(t, 0, l.Len())
}

func TestAppendWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	l, err := NewChangeLog(filepath.Join(blocker, "changes.csv"), DefaultCap)
	require.NoError(t, err)
	err = l.Append(changeEvent(1))
	assert.True(t, errors.Is(err, common.ErrWriteFailure))
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	l := newChangeLog(t, 100)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(changeEvent(i)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, l.Len())
}

func TestAnalysisRoundTrip(t *testing.T) {
	l, err := NewAnalysisLog(filepath.Join(t.TempDir(), "analysis.csv"), DefaultCap)
	require.NoError(t, err)

	conf := 87
	pct := decimal.RequireFromString("-4.2")
	rec := model.AnalysisRecord{
		Timestamp:     time.Date(2024, 3, 3, 3, 3, 3, 0, time.UTC),
		Action:        model.ActionSell,
		Token:         "Bonk",
		TokenSymbol:   "BONK",
		TokenMint:     "DezX",
		TokenName:     "Bonk",
		Analysis:      "volume fading\nwhale exited",
		Confidence:    &conf,
		Price:         decimal.RequireFromString("0.000021"),
		ChangePercent: &pct,
	}
	require.NoError(t, l.Append(rec, model.AnalysisRecord{Timestamp: rec.Timestamp, Action: model.ActionNothing}))

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.ActionNothing, records[0].Action)
	got := records[1]
	assert.Equal(t, rec.Analysis, got.Analysis)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 87, *got.Confidence)
	require.NotNil(t, got.ChangePercent)
	assert.True(t, pct.Equal(*got.ChangePercent))
}

func TestExportXLSX(t *testing.T) {
	changes := newChangeLog(t, DefaultCap)
	require.NoError(t, changes.Append(changeEvent(1), changeEvent(2)))
	analyses, err := NewAnalysisLog(filepath.Join(t.TempDir(), "analysis.csv"), DefaultCap)
	require.NoError(t, err)

	cs, err := SheetOf("changes", changes)
	require.NoError(t, err)
	as, err := SheetOf("analyses", analyses)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, ExportXLSX(out, cs, as))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"changes", "analyses"}, f.GetSheetList())

	rows, err := f.GetRows("changes")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "event_type", rows[0][1])
	assert.Equal(t, "M2", rows[1][5])

	assert.Error(t, ExportXLSX(out))
}

func TestCapInvariantProperty(t *testing.T) {
	dir := t.TempDir()
	properties := gopter.NewProperties(nil)

	run := 0
	properties.Property("len <= cap and newest first after every append", prop.ForAll(
		func(cap int, batches []int) bool {
			run++
			l, err := NewChangeLog(filepath.Join(dir, fmt.Sprintf("p-%d.csv", run)), cap)
			if err != nil {
				return false
			}
			seq := 0
			for _, size := range batches {
				batch := make([]model.ChangeEvent, 0, size)
				for i := 0; i < size; i++ {
					seq++
					batch = append(batch, changeEvent(seq))
				}
				if err := l.Append(batch...); err != nil {
					return false
				}
				records, _ := l.LoadAll()
				if len(records) > cap {
					return false
				}
				if seq > 0 && (len(records) == 0 || records[0].TokenMint != fmt.Sprintf("M%d", seq)) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.SliceOfN(8, gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}
