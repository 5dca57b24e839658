package utils

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Logs how long a call took at debug level.
//
//	defer utils.TimeMethod("name")()
func TimeMethod(name string) func() {
	start := time.Now()
	return func() {
		logrus.Debugf("%s took %v", name, time.Since(start))
	}
}
