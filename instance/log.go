// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type loggerHolder struct {
	logrus.FieldLogger
}

var logger atomic.Value

func init() {
	logger.Store(loggerHolder{logrus.StandardLogger()})
}

// SetLogger sets the logger used for capability discovery and
// negotiation messages. Passing nil restores the logrus standard logger.
// Safe for concurrent use.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger.Store(loggerHolder{l})
}

// Logger returns the current logger.
func Logger() logrus.FieldLogger {
	return logger.Load().(loggerHolder).FieldLogger
}
