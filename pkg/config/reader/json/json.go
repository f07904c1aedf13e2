package json

import (
	stdjson "encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"

	"github.com/ninja0404/token-tracker/pkg/config/encoder"
	"github.com/ninja0404/token-tracker/pkg/config/reader"
	"github.com/ninja0404/token-tracker/pkg/config/source"
)

type jsonReader struct {
	encoders map[string]encoder.Encoder
}

// NewReader 以 json 作为合并后的统一格式
func NewReader() reader.Reader {
	return &jsonReader{encoders: encoder.Defaults()}
}

// Merge 按顺序合并，后面的源覆盖前面的同名键
func (j *jsonReader) Merge(changes ...*source.ChangeSet) (*source.ChangeSet, error) {
	merged := map[string]interface{}{}
	for _, cs := range changes {
		if cs == nil || len(cs.Data) == 0 {
			continue
		}
		enc, err := encoder.ByFormat(j.encoders, cs.Format)
		if err != nil {
			return nil, err
		}
		data, err := ReplaceEnvVars(cs.Data)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := enc.Decode(data, &m); err != nil {
			return nil, fmt.Errorf("解析配置源 %s 失败: %w", cs.Source, err)
		}
		if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("合并配置源 %s 失败: %w", cs.Source, err)
		}
	}

	b, err := stdjson.Marshal(merged)
	if err != nil {
		return nil, err
	}
	cs := &source.ChangeSet{
		Timestamp: time.Now(),
		Data:      b,
		Source:    "json",
		Format:    "json",
	}
	cs.Checksum = cs.Sum()
	return cs, nil
}

func (j *jsonReader) Values(cs *source.ChangeSet) (reader.Values, error) {
	if cs == nil {
		return nil, fmt.Errorf("changeset is nil")
	}
	if cs.Format != "json" {
		return nil, fmt.Errorf("unsupported format %q, merge first", cs.Format)
	}
	return newValues(cs)
}

func (j *jsonReader) String() string {
	return "json"
}
