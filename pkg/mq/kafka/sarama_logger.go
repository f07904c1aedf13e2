package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zapcore"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

var _ sarama.StdLogger = (*saramaLogger)(nil)

// saramaLogger sarama 内部日志转到 zap
type saramaLogger struct {
	l     *logger.Logger
	level zapcore.Level
}

func newSaramaLogger(l *logger.Logger, level zapcore.Level) *saramaLogger {
	return &saramaLogger{l: l, level: level}
}

func (s *saramaLogger) emit(msg string) {
	msg = strings.TrimRight(msg, "\n")
	if msg == "" {
		return
	}
	if ce := s.l.Check(s.level, msg); ce != nil {
		ce.Write()
	}
}

func (s *saramaLogger) Print(v ...interface{}) {
	s.emit(fmt.Sprint(v...))
}

func (s *saramaLogger) Printf(format string, v ...interface{}) {
	s.emit(fmt.Sprintf(format, v...))
}

func (s *saramaLogger) Println(v ...interface{}) {
	s.emit(fmt.Sprintln(v...))
}
