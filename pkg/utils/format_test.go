package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.043549549", "$0.04354"},
		{"0.0043549549", "$0.004354"},
		{"0.000043549549", "$0.0{4}4354"},
		{"2.00003456", "$2.0{4}3456"},
		{"123.000456789", "$123.0004567"},
		{"21.000000", "$21"},
		{"1.5", "$1.5"},
		{"0", "$0"},
		{"-0.5", "-$0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$175.00", FormatUSD(decimal.NewFromInt(175)))
	assert.Equal(t, "-$15.00", FormatUSD(decimal.NewFromInt(-15)))
	assert.Equal(t, "$2.50k", FormatUSD(decimal.NewFromInt(2500)))
	assert.Equal(t, "$1.20M", FormatUSD(decimal.NewFromInt(1_200_000)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(decimal.Zero))
	assert.Equal(t, "150", FormatAmount(decimal.NewFromInt(150)))
	assert.Equal(t, "1.50K", FormatAmount(decimal.NewFromInt(1500)))
	assert.Equal(t, "0.1234", FormatAmount(decimal.RequireFromString("0.123456")))
}

func TestGetDisplayWalletAddress(t *testing.T) {
	assert.Equal(t, "7xKXtg...AsU1", GetDisplayWalletAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU1"))
	assert.Equal(t, "short", GetDisplayWalletAddress("short"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+50.00%", FormatPercent(decimal.NewFromInt(50)))
	assert.Equal(t, "-12.50%", FormatPercent(decimal.RequireFromString("-12.5")))
}

func TestGetConfigFilePath(t *testing.T) {
	t.Setenv(EnvPrefix()+CONFIG_FILE_PATH, "")
	assert.Equal(t, "x.yaml", GetConfigFilePath("x.yaml"))
	t.Setenv(EnvPrefix()+CONFIG_FILE_PATH, "/etc/tracker.yaml")
	assert.Equal(t, "/etc/tracker.yaml", GetConfigFilePath("x.yaml"))
}
