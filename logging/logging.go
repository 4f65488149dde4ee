package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// SourceFormatter adds the caller's file:line as x_file_source and
// delegates the rest to Underlying.
type SourceFormatter struct {
	Underlying logrus.Formatter
}

func (f *SourceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Data["x_file_source"] = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	return f.Underlying.Format(entry)
}

// New returns a logger writing to out (stderr when nil). Unknown levels
// fall back to info.
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	lv, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lv = logrus.InfoLevel
	}
	logger.SetLevel(lv)

	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	logger.SetFormatter(&SourceFormatter{
		Underlying: &logrus.TextFormatter{
			FullTimestamp: true,
			CallerPrettyfier: func(*runtime.Frame) (string, string) {
				return "", ""
			},
		},
	})
	logger.SetReportCaller(true)

	return logger
}
