package logger

import (
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option customises the logger built by New.
type Option func(*options)

type options struct {
	provider log.LoggerProvider
	sink     zapcore.WriteSyncer
}

// WithLoggerProvider tees every record into the OpenTelemetry log pipeline.
func WithLoggerProvider(p log.LoggerProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithSink redirects the JSON output, stdout by default.
func WithSink(w zapcore.WriteSyncer) Option {
	return func(o *options) { o.sink = w }
}

// New builds the JSON logger shared by every service. Each line carries
// timestamp, level, service, hostname and the action name as the message.
func New(service, level string, opts ...Option) *zap.Logger {
	o := options{sink: zapcore.Lock(os.Stdout)}
	for _, opt := range opts {
		opt(&o)
	}

	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "action"
	encCfg.EncodeTime = utcISO8601

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), o.sink, lvl)
	if o.provider != nil {
		core = zapcore.NewTee(core, otelzap.NewCore(service, otelzap.WithLoggerProvider(o.provider)))
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(
			zap.String("service", service),
			zap.String("hostname", hostname()),
		),
	)
}

func hostname() string { h, _ := os.Hostname(); return h }

func utcISO8601(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	zapcore.ISO8601TimeEncoder(t.UTC(), enc)
}
