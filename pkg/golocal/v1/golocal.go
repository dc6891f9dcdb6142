//go:build go1.4
// +build go1.4

package v1

import (
	"sync"

	"github.com/modern-go/gls"
)

const (
	RequestID = "X-Request-ID"
)

// goroutine id -> *sync.Map
var localMap sync.Map

func getGoID() int64 {
	return gls.GoID()
}

func getMapByGoID(goID int64) *sync.Map {
	value, _ := localMap.Load(goID)
	if value == nil {
		_tmp := &sync.Map{}
		localMap.Store(goID, _tmp)
		return _tmp
	}
	return value.(*sync.Map)
}

// PutTraceID binds a trace id to the calling goroutine. Callers must Clean before the
// goroutine returns, pool workers are reused.
func PutTraceID(value string) {
	getMapByGoID(getGoID()).Store(RequestID, value)
}

func GetTraceID() string {
	value, _ := localMap.Load(getGoID())
	if value == nil {
		return ""
	}
	if v, ok := value.(*sync.Map).Load(RequestID); ok {
		return v.(string)
	}
	return ""
}

func Put(key string, value interface{}) {
	getMapByGoID(getGoID()).Store(key, value)
}

func Get(key string) interface{} {
	if v, ok := getMapByGoID(getGoID()).Load(key); ok {
		return v
	}
	return nil
}

func Clean() {
	localMap.Delete(getGoID())
}
