package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

var levelIcons = map[zapcore.Level]string{
	zapcore.DebugLevel: "⚙",
	zapcore.InfoLevel:  "ℹ",
	zapcore.WarnLevel:  "⚠",
	zapcore.ErrorLevel: "✖",
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: ansiGray,
	zapcore.InfoLevel:  ansiCyan,
	zapcore.WarnLevel:  ansiYellow,
	zapcore.ErrorLevel: ansiRed,
}

// ShouldColor reports whether stderr looks like a terminal that wants color.
func ShouldColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// NewPrettyEncoder returns a console encoder that prints a short time, a
// level icon and the logger name before the message.
func NewPrettyEncoder(color bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       encodeName(color),
		EncodeLevel:      encodeLevel(color),
		EncodeTime:       encodeTime(color),
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func encodeLevel(color bool) zapcore.LevelEncoder {
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		icon, ok := levelIcons[level]
		if !ok {
			icon = levelIcons[zapcore.ErrorLevel]
		}
		if level >= zapcore.ErrorLevel {
			icon += " " + strings.ToUpper(level.String())
		}
		enc.AppendString(paint(color, levelColor(level), icon))
	}
}

func levelColor(level zapcore.Level) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return ansiRed
}

func encodeTime(color bool) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(color, ansiGray, t.Format("15:04:05")))
	}
}

func encodeName(color bool) zapcore.NameEncoder {
	return func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(color, ansiYellow, "["+name+"]"))
	}
}

func paint(color bool, code, text string) string {
	if !color || code == "" {
		return text
	}
	return code + text + ansiReset
}
