package log

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var Root = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.TraceLevel,
	Hooks: make(logrus.LevelHooks),
	Formatter: &prefixed.TextFormatter{
		DisableColors: func() bool {
			term, ok := os.LookupEnv("TERM")
			return term == "" || !ok
		}(),
		ForceFormatting: true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	},
}

// ChildLogger tags every entry with a subsystem prefix and filters by
// its own level, independent of the parent.
type ChildLogger struct {
	parent *logrus.Logger
	prefix string
	level  logrus.Level
}

func NewChildLogger(parent *logrus.Logger, prefix string, debug bool) *ChildLogger {
	lc := &ChildLogger{
		parent: parent,
		prefix: prefix,
	}

	if debug {
		lc.level = logrus.DebugLevel
	} else {
		lc.level = logrus.InfoLevel
	}

	return lc
}

func (l *ChildLogger) shouldOutput(level logrus.Level) bool {
	return l != nil && l.level >= level
}

func (l *ChildLogger) entry() *logrus.Entry {
	return l.parent.WithField("prefix", l.prefix)
}

// WithField returns an entry carrying the prefix and one extra field.
func (l *ChildLogger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

func (l *ChildLogger) Debug(args ...interface{}) {
	if l.shouldOutput(logrus.DebugLevel) {
		l.entry().Debug(args...)
	}
}

func (l *ChildLogger) Info(args ...interface{}) {
	if l.shouldOutput(logrus.InfoLevel) {
		l.entry().Info(args...)
	}
}

func (l *ChildLogger) Warning(args ...interface{}) {
	if l.shouldOutput(logrus.WarnLevel) {
		l.entry().Warning(args...)
	}
}

func (l *ChildLogger) Error(args ...interface{}) {
	if l.shouldOutput(logrus.ErrorLevel) {
		l.entry().Error(args...)
	}
}

func (l *ChildLogger) Debugf(format string, args ...interface{}) {
	if l.shouldOutput(logrus.DebugLevel) {
		l.entry().Debugf(format, args...)
	}
}

func (l *ChildLogger) Infof(format string, args ...interface{}) {
	if l.shouldOutput(logrus.InfoLevel) {
		l.entry().Infof(format, args...)
	}
}

func (l *ChildLogger) Warningf(format string, args ...interface{}) {
	if l.shouldOutput(logrus.WarnLevel) {
		l.entry().Warningf(format, args...)
	}
}

func (l *ChildLogger) Errorf(format string, args ...interface{}) {
	if l.shouldOutput(logrus.ErrorLevel) {
		l.entry().Errorf(format, args...)
	}
}

func (l *ChildLogger) IsDebug() bool {
	return l.shouldOutput(logrus.DebugLevel)
}

// Children holds one logger per subsystem.
type Children struct {
	USB   *ChildLogger
	PTP   *ChildLogger
	Data  *ChildLogger
	Cache *ChildLogger
	Event *ChildLogger
	HTTP  *ChildLogger
}

// DebugFlags selects which subsystems log at debug level.
type DebugFlags struct {
	USB   bool `mapstructure:"usb" yaml:"usb"`
	PTP   bool `mapstructure:"ptp" yaml:"ptp"`
	Data  bool `mapstructure:"data" yaml:"data"`
	Cache bool `mapstructure:"cache" yaml:"cache"`
	Event bool `mapstructure:"event" yaml:"event"`
	HTTP  bool `mapstructure:"http" yaml:"http"`
}

func PrepareChildren(parent *logrus.Logger, flags DebugFlags) *Children {
	return &Children{
		USB:   NewChildLogger(parent, "usb", flags.USB),
		PTP:   NewChildLogger(parent, "ptp", flags.PTP),
		Data:  NewChildLogger(parent, "data", flags.Data),
		Cache: NewChildLogger(parent, "cache", flags.Cache),
		Event: NewChildLogger(parent, "event", flags.Event),
		HTTP:  NewChildLogger(parent, "http", flags.HTTP),
	}
}

// Discard returns children writing nowhere. Used when the caller
// provides no loggers.
func Discard() *Children {
	l := &logrus.Logger{
		Out:       io.Discard,
		Level:     logrus.PanicLevel,
		Hooks:     make(logrus.LevelHooks),
		Formatter: &logrus.TextFormatter{},
	}
	return PrepareChildren(l, DebugFlags{})
}

func HTTPLogHandler(l *ChildLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			l.Infof("%s %s %s %s", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
		}()
		next.ServeHTTP(w, r)
	})
}
