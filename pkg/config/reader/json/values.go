package json

import (
	stdjson "encoding/json"
	"strconv"
	"strings"
	"time"

	simple "github.com/bitly/go-simplejson"

	"github.com/ninja0404/token-tracker/pkg/config/reader"
	"github.com/ninja0404/token-tracker/pkg/config/source"
)

type jsonValues struct {
	ch *source.ChangeSet
	sj *simple.Json
}

type jsonValue struct {
	*simple.Json
}

func newValues(ch *source.ChangeSet) (reader.Values, error) {
	sj, err := simple.NewJson(ch.Data)
	if err != nil {
		return nil, err
	}
	return &jsonValues{ch: ch, sj: sj}, nil
}

func (j *jsonValues) Get(path ...string) reader.Value {
	return &jsonValue{j.sj.GetPath(path...)}
}

func (j *jsonValues) Bytes() []byte {
	b, _ := j.sj.MarshalJSON()
	return b
}

func (j *jsonValues) Map() map[string]interface{} {
	m, _ := j.sj.Map()
	return m
}

func (j *jsonValues) Scan(v interface{}) error {
	return stdjson.Unmarshal(j.Bytes(), v)
}

func (j *jsonValue) Bool(def bool) bool {
	if b, err := j.Json.Bool(); err == nil {
		return b
	}
	if str, ok := j.Interface().(string); ok {
		if b, err := strconv.ParseBool(str); err == nil {
			return b
		}
	}
	return def
}

func (j *jsonValue) Int(def int) int {
	if i, err := j.Json.Int(); err == nil {
		return i
	}
	if str, ok := j.Interface().(string); ok {
		if i, err := strconv.Atoi(str); err == nil {
			return i
		}
	}
	return def
}

func (j *jsonValue) String(def string) string {
	return j.Json.MustString(def)
}

func (j *jsonValue) Float64(def float64) float64 {
	if f, err := j.Json.Float64(); err == nil {
		return f
	}
	if str, ok := j.Interface().(string); ok {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return f
		}
	}
	return def
}

// Duration 支持 "30s" 形式，纯数字按秒处理
func (j *jsonValue) Duration(def time.Duration) time.Duration {
	if v, err := j.Json.String(); err == nil {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return def
	}
	if secs, err := j.Json.Float64(); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

// StringSlice 兼容逗号分隔的字符串
func (j *jsonValue) StringSlice(def []string) []string {
	if v, err := j.Json.String(); err == nil {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return j.Json.MustStringArray(def)
}

func (j *jsonValue) Scan(v interface{}) error {
	b, err := j.Json.MarshalJSON()
	if err != nil {
		return err
	}
	return stdjson.Unmarshal(b, v)
}

func (j *jsonValue) Bytes() []byte {
	if b, err := j.Json.Bytes(); err == nil {
		return b
	}
	b, err := j.Json.MarshalJSON()
	if err != nil {
		return []byte{}
	}
	return b
}
