package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FieldErr ...
func FieldErr(err error) Field {
	return zap.Error(err)
}

func FieldMod(value string) Field {
	return String("mod", value)
}

// FieldWallet 钱包地址
func FieldWallet(wallet string) Field {
	return String("wallet", wallet)
}

// FieldMint 代币mint地址
func FieldMint(mint string) Field {
	return String("mint", mint)
}

func FieldPath(path string) Field {
	return String("path", path)
}

func FieldCost(value time.Duration) Field {
	return String("cost", fmt.Sprintf("%.3f", float64(value.Round(time.Microsecond))/float64(time.Millisecond)))
}
