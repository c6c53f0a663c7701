// Package logx wraps a zap sugared logger behind a small interface shared by
// every component of the game server.
package logx

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	With(keysAndValues ...interface{}) Logger
	Sync() error
}

// Options selects the encoder and destination of a logger
type Options struct {
	Level   string    // debug, info, warn, error; unknown values fall back to info
	JSON    bool      // JSON encoder instead of console
	Dev     bool      // development encoder config (colored levels, short caller)
	Output  io.Writer // defaults to os.Stderr
	Name    string
	NoTrace bool
}

type Logx struct {
	sugarLogger *zap.SugaredLogger
}

var loggerLevelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// LevelFromString maps a level name to a zap level, defaulting to info
func LevelFromString(lvl string) zapcore.Level {
	level, exist := loggerLevelMap[strings.ToLower(strings.TrimSpace(lvl))]
	if !exist {
		return zapcore.InfoLevel
	}
	return level
}

func New(opts Options) *Logx {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	logWriter := zapcore.AddSync(w)

	var encoderCfg zapcore.EncoderConfig
	if opts.Dev {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Dev && !opts.JSON {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, logWriter, zap.NewAtomicLevelAt(LevelFromString(opts.Level)))
	zopts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if !opts.NoTrace {
		zopts = append(zopts, zap.AddStacktrace(zapcore.DPanicLevel))
	}
	logger := zap.New(core, zopts...)
	if opts.Name != "" {
		logger = logger.Named(opts.Name)
	}
	return &Logx{sugarLogger: logger.Sugar()}
}

// Nop returns a logger that discards everything
func Nop() *Logx {
	return &Logx{sugarLogger: zap.NewNop().Sugar()}
}

func (l *Logx) Debug(args ...interface{}) {
	l.sugarLogger.Debug(args...)
}

func (l *Logx) Debugf(template string, args ...interface{}) {
	l.sugarLogger.Debugf(template, args...)
}

func (l *Logx) Info(args ...interface{}) {
	l.sugarLogger.Info(args...)
}

func (l *Logx) Infof(template string, args ...interface{}) {
	l.sugarLogger.Infof(template, args...)
}

func (l *Logx) Warn(args ...interface{}) {
	l.sugarLogger.Warn(args...)
}

func (l *Logx) Warnf(template string, args ...interface{}) {
	l.sugarLogger.Warnf(template, args...)
}

func (l *Logx) Error(args ...interface{}) {
	l.sugarLogger.Error(args...)
}

func (l *Logx) Errorf(template string, args ...interface{}) {
	l.sugarLogger.Errorf(template, args...)
}

func (l *Logx) Fatalf(template string, args ...interface{}) {
	l.sugarLogger.Fatalf(template, args...)
}

// With returns a child logger carrying structured context
func (l *Logx) With(keysAndValues ...interface{}) Logger {
	return &Logx{sugarLogger: l.sugarLogger.With(keysAndValues...)}
}

func (l *Logx) Sync() error {
	return l.sugarLogger.Sync()
}
