// Package encoder 配置数据编解码：json / yaml / toml
package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ghodss/yaml"
)

type Encoder interface {
	Encode(interface{}) ([]byte, error)
	Decode([]byte, interface{}) error
	String() string
}

type jsonEncoder struct{}

func (jsonEncoder) Encode(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonEncoder) Decode(d []byte, v interface{}) error { return json.Unmarshal(d, v) }
func (jsonEncoder) String() string                       { return "json" }

// yaml 先转换为 json 再解码，保证与 json tag 一致
type yamlEncoder struct{}

func (yamlEncoder) Encode(v interface{}) ([]byte, error) { return yaml.Marshal(v) }
func (yamlEncoder) Decode(d []byte, v interface{}) error { return yaml.Unmarshal(d, v) }
func (yamlEncoder) String() string                       { return "yaml" }

type tomlEncoder struct{}

func (tomlEncoder) Encode(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
func (tomlEncoder) Decode(d []byte, v interface{}) error { return toml.Unmarshal(d, v) }
func (tomlEncoder) String() string                       { return "toml" }

func NewJSON() Encoder { return jsonEncoder{} }
func NewYAML() Encoder { return yamlEncoder{} }
func NewTOML() Encoder { return tomlEncoder{} }

// Defaults 默认支持的编码
func Defaults() map[string]Encoder {
	return map[string]Encoder{
		"json": NewJSON(),
		"yaml": NewYAML(),
		"yml":  NewYAML(),
		"toml": NewTOML(),
	}
}

// ByFormat 根据格式名选择编码器
func ByFormat(encoders map[string]Encoder, format string) (Encoder, error) {
	if format == "" {
		format = "json"
	}
	e, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return e, nil
}
