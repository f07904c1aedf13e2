package polardbx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func TestValidateConfigDefaults(t *testing.T) {
	cnf := validateConfig(&MysqlConfig{Host: "db", User: "u", Password: "p", Database: "tracker"})
	assert.Equal(t, 20, cnf.MaxPoolSize)
	assert.Equal(t, 10, cnf.MaxIdleSize)
	assert.Equal(t, 10*time.Minute, cnf.MaxIdleDuration())
	assert.Equal(t, 3306, cnf.Port)
	assert.Equal(t, time.Second, cnf.slowThreshold())
	assert.Equal(t, "u:p@tcp(db:3306)/tracker?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s", getDsn(cnf))
}

func TestEnabled(t *testing.T) {
	var nilConfig *MysqlConfig
	assert.False(t, nilConfig.Enabled())
	assert.False(t, (&MysqlConfig{}).Enabled())
	assert.True(t, (&MysqlConfig{Host: "localhost"}).Enabled())

	_, err := SetupDefaultDatabase(&MysqlConfig{})
	assert.Error(t, err)
	_, err = GetDbWithName("missing")
	assert.Error(t, err)
}

func TestMappingLoggerLevel(t *testing.T) {
	assert.Equal(t, gormLogger.Info, mappingLoggerLevel("error", true))
	assert.Equal(t, gormLogger.Warn, mappingLoggerLevel("", false))
	assert.Equal(t, gormLogger.Error, mappingLoggerLevel("ERROR", false))
	assert.Equal(t, gormLogger.Silent, mappingLoggerLevel("off", false))
}

func TestMysqlLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewMysqlLogger(zap.New(core), gormLogger.Warn, 10*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, 1, logs.FilterMessageSnippet("SLOW SQL").Len())

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len(), "忽略记录不存在")

	l.Trace(context.Background(), time.Now(), sql, errors.New("deadlock"))
	assert.Equal(t, 1, logs.FilterMessageSnippet("deadlock").Len())
}
