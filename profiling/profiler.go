package profiling

import (
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	onceToken = atomic.Bool{}
)

// Starts a web server to access the pprof profiler web interface on the specified port.
// Caller must ensure that the port is not publicly accessible (firewall rules, etc)
func OpenProfileServer(port int) {
	if !onceToken.CompareAndSwap(false, true) {
		// There should only be one server per executable instance
		logrus.Warn("Cannot start profiling more than once")
		return
	}
	go func() {
		logrus.Infof("pprof server listening on port %d", port)
		logrus.Error(http.ListenAndServe(":"+strconv.Itoa(port), nil))
	}()
}
