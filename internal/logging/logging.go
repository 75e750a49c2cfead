package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var LOG_LEVELS = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
	"fatal": logrus.FatalLevel,
	"panic": logrus.PanicLevel,
}

// Setup configures the global logrus logger. Log lines go to stderr so that
// console output of simulation points stays clean on stdout.
func Setup(level string) error {
	return SetupWithWriter(level, os.Stderr)
}

func SetupWithWriter(level string, w io.Writer) error {
	lvl, ok := LOG_LEVELS[level]
	if !ok {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.0000",
	})
	logrus.SetLevel(lvl)
	return nil
}
