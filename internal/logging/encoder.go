package logging

import (
	"sort"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// lineEncoder renders log entries as
// "<ISO8601 timestamp> - <logger name> - <LEVEL> - <message> key=value ...",
// matching original_source's
// `%(asctime)s - %(name)s - %(levelname)s - %(message)s` formatter. zap's
// stock console encoder is close but orders level before name and joins
// with a tab, so this is a small purpose-built encoder rather than a
// configured stock one.
//
// Structured "with" fields (logger.With(...)) and per-call fields both
// need to render as key=value suffixes; rather than reimplement every
// zapcore.ObjectEncoder method, lineEncoder embeds a MapObjectEncoder,
// which already implements that interface, and only overrides Clone and
// EncodeEntry.
type lineEncoder struct {
	*zapcore.MapObjectEncoder
	cfg  zapcore.EncoderConfig
	pool buffer.Pool
}

// NewLineEncoder builds the encoder described above.
func NewLineEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &lineEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              cfg,
		pool:             buffer.NewPool(),
	}
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	clone := &lineEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              e.cfg,
		pool:             e.pool,
	}
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (e *lineEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := e.Clone().(*lineEncoder)
	for _, f := range fields {
		f.AddTo(final)
	}

	line := e.pool.Get()

	line.AppendString(entry.Time.UTC().Format(time.RFC3339Nano))
	line.AppendString(" - ")
	name := entry.LoggerName
	if name == "" {
		name = "ratedispatch"
	}
	line.AppendString(name)
	line.AppendString(" - ")
	line.AppendString(entry.Level.CapitalString())
	line.AppendString(" - ")
	line.AppendString(entry.Message)

	if len(final.Fields) > 0 {
		keys := make([]string, 0, len(final.Fields))
		for k := range final.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line.AppendString(" ")
			line.AppendString(k)
			line.AppendString("=")
			_, _ = fmtAppend(line, final.Fields[k])
		}
	}

	if entry.Stack != "" {
		line.AppendString("\n")
		line.AppendString(entry.Stack)
	}

	line.AppendString("\n")
	return line, nil
}
