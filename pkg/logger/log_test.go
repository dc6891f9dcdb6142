package logger

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	golocalv1 "github.com/caiflower/webserver/pkg/golocal/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerStdOut(t *testing.T) {
	logger := newLoggerHandler(&Config{
		Level:       TraceLevel,
		EnableTrace: "True",
	})
	group := sync.WaitGroup{}

	for i := 1; i <= 10; i++ {
		group.Add(1)
		go func(i int) {
			defer group.Done()
			golocalv1.PutTraceID("lt-" + strconv.Itoa(i))
			defer golocalv1.Clean()
			logger.Trace("trace" + strconv.Itoa(i))
			logger.Info("info %d", i)
			logger.Error("error" + strconv.Itoa(i))
		}(i)
	}

	group.Wait()
	logger.Close()
	logger.Info("dropped after close")
}

func TestLoggerFileOut(t *testing.T) {
	dir := t.TempDir()
	logger := newLoggerHandler(&Config{
		Level:       InfoLevel,
		EnableTrace: "True",
		Path:        dir,
		FileName:    "server.log",
		AppenderNum: 4,
	})

	golocalv1.PutTraceID("conn-42")
	defer golocalv1.Clean()
	logger.Debug("filtered by level")
	logger.Info("[server] request %s", "/index.html")
	logger.Warn("[server] slow client")
	logger.Close()

	content, err := os.ReadFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	text := string(content)
	assert.NotContains(t, text, "filtered by level")
	assert.Contains(t, text, "[INFO] [conn-42] log_test.go:")
	assert.Contains(t, text, "[server] request /index.html")
	assert.Contains(t, text, "[WARN]")
	assert.Equal(t, 2, strings.Count(text, "\n"))
}

func TestGetLevel(t *testing.T) {
	assert.Equal(t, _info, getLevel(InfoLevel))
	assert.Equal(t, _fatal, getLevel(FatalLevel))
	assert.Equal(t, _trace, getLevel("unknown"))
}
