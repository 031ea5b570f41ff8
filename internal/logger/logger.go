package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 全局日志实例
	Logger = log.Logger
)

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format       string `json:"format" yaml:"format"` // json 或 pretty
	TimeFormat   string `json:"time_format" yaml:"time_format"`
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"`
	// Output 为空时写到 stderr，CLI 的 stdout 留给结果输出
	Output io.Writer `json:"-" yaml:"-"`
}

// New 按配置创建日志实例，不修改全局状态
func New(config Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if config.Output != nil {
		out = config.Output
	}
	if config.Format == "pretty" {
		timeFormat := config.TimeFormat
		if timeFormat == "" {
			timeFormat = time.Kitchen
		}
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if config.ReportCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Init 初始化全局日志，同时把 Hertz 的 hlog 接到同一个 zerolog 实例上
func Init(config Config) zerolog.Logger {
	if config.TimeFormat != "" && config.Format != "pretty" {
		zerolog.TimeFieldFormat = config.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	Logger = New(config)
	log.Logger = Logger
	zerolog.SetGlobalLevel(Logger.GetLevel())

	hlog.SetLogger(hertzzerolog.From(Logger))
	hlog.SetLevel(hlogLevel(Logger.GetLevel()))
	return Logger
}

func hlogLevel(l zerolog.Level) hlog.Level {
	switch l {
	case zerolog.TraceLevel:
		return hlog.LevelTrace
	case zerolog.DebugLevel:
		return hlog.LevelDebug
	case zerolog.WarnLevel:
		return hlog.LevelWarn
	case zerolog.ErrorLevel:
		return hlog.LevelError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}

// Component 返回带 component 字段的子日志
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// OrNop 解引用可选的日志指针，nil 时返回丢弃一切的日志
func OrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

func Debug() *zerolog.Event { return Logger.Debug() }
func Info() *zerolog.Event  { return Logger.Info() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }

// Fatal 记录后程序退出
func Fatal() *zerolog.Event { return Logger.Fatal() }

// Ctx 从上下文中取日志；上下文里没有时返回全局日志
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}

// WithContext 把 l 放进上下文
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
