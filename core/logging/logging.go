// Package logging 基于 zap 构建结构化日志。
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置。
type Config struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json console"`
	// Output 为 stdout、stderr 或文件路径。
	Output string `mapstructure:"output" yaml:"output"`
}

// Logger 包装 zap.Logger 并暴露可在运行时调整的级别。
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New 根据配置创建日志器，级别非法时回退到 info。
func New(cfg Config) (*Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var zcfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zcfg.Sampling = nil
	}
	zcfg.Level = level
	if cfg.Output != "" {
		zcfg.OutputPaths = []string{cfg.Output}
	}

	logger, err := zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, level: level}, nil
}

// Nop 返回丢弃全部输出的日志器。
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel 运行时调整级别，非法值被忽略。
func (l *Logger) SetLevel(level string) {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return
	}
	l.level.SetLevel(lv)
}

// Level 返回当前级别。
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Named 返回带组件名的 SugaredLogger，满足各 core 包的 Logger 接口。
func (l *Logger) Named(component string) *zap.SugaredLogger {
	return l.Logger.Named(component).Sugar()
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
