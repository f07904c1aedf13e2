package json

import (
	"os"
	"regexp"
)

// ${NAME} 或 ${NAME:-default}
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ReplaceEnvVars 替换配置中的环境变量引用
func ReplaceEnvVars(raw []byte) ([]byte, error) {
	return envPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		groups := envPattern.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(v)
		}
		return groups[2]
	}), nil
}
