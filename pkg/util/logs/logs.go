// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logs

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/pkg/errors"
	lg "github.com/sirupsen/logrus"
)

// LogWriter serves as a bridge between the standard log package and a logger.
type LogWriter struct {
	Log logging.Logger
}

// Write implements the io.Writer interface.
func (writer LogWriter) Write(data []byte) (n int, err error) {
	writer.Log.Info(strings.TrimRight(string(data), "\n"))
	return len(data), nil
}

// ParseLevel converts a level name to LogLevel. Unknown names map to info.
func ParseLevel(level string) logging.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logging.DebugLevel
	case "warn", "warning":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	}
	return logging.InfoLevel
}

// InitLogs points the default logger to logFile, truncated on every run,
// and redirects the standard log package to it. The returned closer
// releases the file.
func InitLogs(logFile, level string) (*logrus.Logger, io.Closer, error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open log file %s", logFile)
	}
	logger := logrus.DefaultLogger()
	logger.SetOutput(file)
	logger.SetFormatter(&lg.TextFormatter{DisableColors: true, FullTimestamp: true})
	logger.SetLevel(ParseLevel(level))

	log.SetOutput(LogWriter{Log: logger})
	log.SetFlags(0)
	return logger, file, nil
}
