package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewStorageLogger builds the zerolog logger used by the recorder and
// influx layers. Console output is colored; the file copy is plain.
func NewStorageLogger(file io.Writer) zerolog.Logger {
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	mlw := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(mlw).With().Timestamp().Logger()
}
