package utils

import (
	"os"
	"strings"
)

const (
	ENV string = "ENV"

	ENV_LOCAL string = "LOCAL"
	ENV_DEV   string = "DEV"
	ENV_PROD  string = "PROD"
)

const (
	CONFIG_TYPE string = "CONFIG_TYPE"
	CONFIG_FILE string = "FILE"
	CONFIG_MSE  string = "MSE"

	CONFIG_FILE_PATH string = "CONFIG_FILE_PATH"

	DefaultConfigFilePath = "./config/config.yaml"
)

var envPrefix = "TRACKER_"

func SetEnvPrefix(prefix string) {
	envPrefix = prefix
}

func EnvPrefix() string {
	return envPrefix
}

func GetEnv() string {
	return os.Getenv(envPrefix + ENV)
}

func IsProdEnv() bool {
	return strings.EqualFold(GetEnv(), ENV_PROD)
}

// GetConfigType 配置来源类型，默认文件
func GetConfigType() string {
	configType := os.Getenv(envPrefix + CONFIG_TYPE)
	if configType == "" {
		return CONFIG_FILE
	}
	return strings.ToUpper(configType)
}

func IsFileConfig() bool {
	return GetConfigType() == CONFIG_FILE
}

// GetConfigFilePath 环境变量优先，未设置时使用 fallback
func GetConfigFilePath(fallback string) string {
	if p := os.Getenv(envPrefix + CONFIG_FILE_PATH); p != "" {
		return p
	}
	if fallback != "" {
		return fallback
	}
	return DefaultConfigFilePath
}
