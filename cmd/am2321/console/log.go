package console

import (
	"context"
	"fmt"
	"io"
	"os"
)

const PictoThermometer = "🌡"
const PictoHumidity = "💧"
const PictoSweat = "💦"
const PictoStop = "🚫"

var writer io.Writer
var errWriter io.Writer

func init() {
	writer = os.Stdout
	errWriter = os.Stderr
}

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Error(msg string) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), msg)
}

func Errorf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warn(msg string) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), msg)
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Debug(ctx context.Context, msg string) {
	if IsVerbose(ctx) {
		_, _ = fmt.Fprintf(writer, "%s %s\n", White("[DEBUG]"), msg)
	}
}

func Debugf(ctx context.Context, msg string, args ...interface{}) {
	if IsVerbose(ctx) {
		_, _ = fmt.Fprintf(writer, "%s %s\n", White("[DEBUG]"), fmt.Sprintf(msg, args...))
	}
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Print(msg string) {
	_, _ = fmt.Fprintln(writer, msg)
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
