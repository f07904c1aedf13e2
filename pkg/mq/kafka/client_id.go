package kafka

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// instanceClientID 在配置的 client id 后追加 主机名-进程号-启动时间，同名实例可区分
func instanceClientID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	host = strings.NewReplacer(".", "_", " ", "_").Replace(host)
	return fmt.Sprintf("%s_%s-%d-%d", prefix, host, os.Getpid(), time.Now().Unix())
}
