package main

import (
	"fmt"
	"os"

	"github.com/ninja0404/token-tracker/internal/app"
	"github.com/ninja0404/token-tracker/pkg/utils"
)

func main() {
	application := app.New()

	// TRACKER_CONFIG_FILE_PATH 可覆盖默认配置路径
	if err := application.Start(utils.DefaultConfigFilePath); err != nil {
		fmt.Fprintf(os.Stderr, "持仓跟踪服务启动失败: %v\n", err)
		os.Exit(1)
	}
}
