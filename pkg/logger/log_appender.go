package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caiflower/webserver/pkg/e"
	"github.com/caiflower/webserver/pkg/syncx"
	"github.com/caiflower/webserver/pkg/tools"
)

type Appender interface {
	write(data data)
	close()
}

type logAppender struct {
	timeFormat  string
	isConsole   bool
	enableTrace bool
	enableColor bool

	bufPool   sync.Pool
	log       *log.Logger
	writeLock sync.Locker
	logFile   *os.File
}

func newLogAppender(timeFormat, path, fileName string, enableTrace, enableColor bool) Appender {
	appender := &logAppender{
		timeFormat: timeFormat,
		bufPool: sync.Pool{
			New: func() interface{} {
				return new(strings.Builder)
			}},
		enableTrace: enableTrace,
		enableColor: enableColor,
		writeLock:   syncx.NewSpinLock(),
		log:         new(log.Logger),
	}

	if path == "" {
		appender.isConsole = true
		appender.log.SetOutput(os.Stdout)
		return appender
	}

	if err := tools.Mkdir(path, 0755); err != nil {
		panic(fmt.Sprintf("[logger appender] mkdir err: %s\n", err))
	}
	logfile, err := os.OpenFile(filepath.Join(path, fileName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("[logger appender] open logfile err: %s\n", err))
	}
	appender.logFile = logfile
	appender.log.SetOutput(logfile)
	return appender
}

func (appender *logAppender) write(data data) {
	defer e.OnError("[logger appender]")

	level := data.level
	if appender.enableColor {
		level = getLevelColor(level)
	}
	buf := appender.bufPool.Get().(*strings.Builder)
	buf.Reset()
	buf.WriteString(data.timestamp.Format(appender.timeFormat))
	buf.WriteString(" [")
	buf.WriteString(level)
	buf.WriteString("] ")
	if appender.enableTrace && data.traceID != "" {
		buf.WriteString("[")
		if appender.enableColor {
			buf.WriteString(fmt.Sprintf("\033[1;35m%s\033[0m", data.traceID))
		} else {
			buf.WriteString(data.traceID)
		}
		buf.WriteString("] ")
	}
	buf.WriteString(data.position)
	buf.WriteString(" - ")
	buf.WriteString(data.content)

	appender.writeLock.Lock()
	defer func() {
		appender.writeLock.Unlock()
		buf.Reset()
		appender.bufPool.Put(buf)
	}()

	appender.log.Println(buf.String())
}

func (appender *logAppender) close() {
	appender.writeLock.Lock()
	defer appender.writeLock.Unlock()

	if appender.logFile != nil {
		if err := appender.logFile.Sync(); err != nil {
			fmt.Printf("[logger close] sync log file err: %s\n", err)
		}
		if err := appender.logFile.Close(); err != nil {
			fmt.Printf("[logger appender] close logfile err: %s\n", err)
		}
		appender.logFile = nil
	}
}
