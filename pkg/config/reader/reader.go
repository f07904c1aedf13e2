// Package reader 合并多个配置源并提供按路径取值
package reader

import (
	"time"

	"github.com/ninja0404/token-tracker/pkg/config/source"
)

// Reader 合并 ChangeSet 并生成 Values
type Reader interface {
	Merge(...*source.ChangeSet) (*source.ChangeSet, error)
	Values(*source.ChangeSet) (Values, error)
	String() string
}

type Values interface {
	Get(path ...string) Value
	Bytes() []byte
	Map() map[string]interface{}
	Scan(v interface{}) error
}

type Value interface {
	Bool(def bool) bool
	Int(def int) int
	String(def string) string
	Float64(def float64) float64
	Duration(def time.Duration) time.Duration
	StringSlice(def []string) []string
	Scan(val interface{}) error
	Bytes() []byte
}
