package basic

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	auditLogger *zap.Logger
	auditOnce   sync.Once
)

// InitAuditLogger 初始化资金审计日志
// 每一次钱包变更和分账都会落一条结构化日志，文件按大小滚动
func InitAuditLogger(fileName string, maxSize, maxBackups, maxAge int) {
	auditOnce.Do(func() {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   fileName,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		})
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zapcore.InfoLevel)
		auditLogger = zap.New(core)
	})
}

// AuditLogger 获取审计日志实例，未初始化时返回 Nop 以便测试
func AuditLogger() *zap.Logger {
	if auditLogger == nil {
		return zap.NewNop()
	}
	return auditLogger
}
