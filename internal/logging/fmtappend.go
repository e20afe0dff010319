package logging

import (
	"fmt"

	"go.uber.org/zap/buffer"
)

// fmtAppend writes v's default string representation into buf. Field
// values coming out of zapcore.NewMapObjectEncoder are plain Go values
// (strings, numbers, errors, nested maps), so fmt.Sprint is sufficient
// and keeps the encoder free of a type switch per zap field kind.
func fmtAppend(buf *buffer.Buffer, v interface{}) (int, error) {
	s := fmt.Sprint(v)
	buf.AppendString(s)
	return len(s), nil
}
