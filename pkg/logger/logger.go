// Package logger 持有进程级 zap logger，并把 hertz 的 hlog 接到同一个输出上。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"TripPlanner/config"
)

var (
	// Logger 在 Init 之前为 Nop，测试中可直接使用
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Options 日志输出配置
type Options struct {
	Level  string
	Text   bool
	Output string // stdout 或文件路径
	Fields []zap.Field
}

// OptionsFromConfig 开发环境总是输出文本格式；service 与 environment 写入每条日志
func OptionsFromConfig(cfg *config.Config, service string) Options {
	return Options{
		Level:  cfg.LoggerLevel,
		Text:   cfg.IsDevelopment() || strings.EqualFold(cfg.LoggerFormat, "text"),
		Output: cfg.LoggerOutputPath,
		Fields: []zap.Field{
			zap.String("service", service),
			zap.String("environment", cfg.Environment),
		},
	}
}

// Init 以 service 作为日志来源初始化全局 logger，server 与 worker 各自传入自己的名字
func Init(service string) {
	opts := OptionsFromConfig(&config.Cfg, service)

	hz, closer, openErr := build(opts)
	if openErr != nil {
		// 日志文件打不开时退回 stdout，进程照常启动
		opts.Output = "stdout"
		hz, closer, _ = build(opts)
	}

	hlog.SetLogger(hz)
	hlog.SetLevel(toHlogLevel(parseZapLevel(opts.Level)))

	Logger = hz.Logger().With(opts.Fields...)
	logClose = closer
	if openErr != nil {
		Logger.Warn("Log file unavailable, writing to stdout", zap.Error(openErr))
	}
	Logger.Info("Logger initialized", zap.String("level", strings.ToUpper(opts.Level)), zap.Bool("text", opts.Text))
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logClose != nil {
		_ = logClose.Close()
	}
}

func build(opts Options) (*hertzzap.Logger, io.Closer, error) {
	ws, closer, err := openOutput(opts.Output)
	if err != nil {
		return nil, nil, err
	}

	level := zap.NewAtomicLevelAt(parseZapLevel(opts.Level))
	hz := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(newEncoder(opts.Text)),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
	)
	return hz, closer, nil
}

func newEncoder(text bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder

	if text {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

func openOutput(path string) (zapcore.WriteSyncer, io.Closer, error) {
	if path == "" || strings.EqualFold(path, "stdout") {
		return zapcore.AddSync(os.Stdout), nil, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return zapcore.AddSync(file), file, nil
}

var zapLevels = map[string]zapcore.Level{
	"DEBUG": zapcore.DebugLevel,
	"INFO":  zapcore.InfoLevel,
	"WARN":  zapcore.WarnLevel,
	"ERROR": zapcore.ErrorLevel,
}

func parseZapLevel(level string) zapcore.Level {
	if l, ok := zapLevels[strings.ToUpper(level)]; ok {
		return l
	}
	return zapcore.InfoLevel
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelInfo
	}
}
