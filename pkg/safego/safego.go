package safego

import (
	"github.com/caiflower/webserver/pkg/e"
	golocalv1 "github.com/caiflower/webserver/pkg/golocal/v1"
)

// Go runs fn on a new goroutine that inherits the caller's trace id. A panic in fn is
// recovered and printed.
func Go(fn func()) {
	traceID := golocalv1.GetTraceID()
	go func() {
		if traceID != "" {
			golocalv1.PutTraceID(traceID)
			defer golocalv1.Clean()
		}
		defer e.OnError("safeGo")

		fn()
	}()
}
