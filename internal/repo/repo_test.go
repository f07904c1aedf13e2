package repo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ninja0404/token-tracker/internal/model"
)

// dryRunDB 只生成 SQL 不连接数据库
func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(mysqlDriver.New(mysqlDriver.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/tracker?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormLogger.Discard,
	})
	require.NoError(t, err)

	var captured []string
	capture := func(tx *gorm.DB) {
		captured = append(captured, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	return db, &captured
}

func TestGetTokenInfosSQL(t *testing.T) {
	db, captured := dryRunDB(t)
	r := NewTokenInfoRepo(db)

	_, err := r.GetTokenInfos(context.Background(), []string{"M1", "M2"})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	sql := (*captured)[0]
	assert.Contains(t, sql, "FROM `tokens_info`")
	assert.Contains(t, sql, "token_address IN ('M1','M2')")
	assert.Contains(t, sql, "`current_price`")

	infos, err := r.GetTokenInfos(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, infos)
	assert.Len(t, *captured, 1, "空列表不查询")
}

func TestChangeEventRepoSQL(t *testing.T) {
	db, captured := dryRunDB(t)
	r := NewChangeEventRepo(db)
	ctx := context.Background()

	e := model.NewTokenEvent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "W1", model.TokenHolding{
		Mint: "M1", Name: "One", Symbol: "ONE",
		Amount: decimal.NewFromInt(10), Price: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, r.SaveBatch(ctx, []model.ChangeEvent{e}))
	require.NoError(t, r.SaveBatch(ctx, nil))

	_, err := r.ListByWallet(ctx, "W1", 0)
	require.NoError(t, err)

	require.Len(t, *captured, 2)
	insert := (*captured)[0]
	assert.Contains(t, insert, "INSERT INTO `token_change_events`")
	assert.Contains(t, insert, e.ID)
	assert.Contains(t, insert, "ON DUPLICATE KEY UPDATE")

	query := (*captured)[1]
	assert.Contains(t, query, "wallet = 'W1'")
	assert.Contains(t, query, "ORDER BY event_time DESC,id DESC")
	assert.Contains(t, query, "LIMIT 100")
}

func TestToRows(t *testing.T) {
	e := model.RemovedTokenEvent(time.Now(), "W1", model.TokenHolding{
		Mint: "M1", Amount: decimal.NewFromInt(5), Price: decimal.NewFromInt(3),
	})
	rows := ToRows([]model.ChangeEvent{e})
	require.Len(t, rows, 1)
	assert.Equal(t, "REMOVED", rows[0].EventType)
	assert.True(t, rows[0].USDChange.Equal(decimal.NewFromInt(-15)))
	assert.Equal(t, model.UnknownTokenSymbol, rows[0].TokenSymbol)
}
