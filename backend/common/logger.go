package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

const timeFormat = "2006/01/02 - 15:04:05"

// SetupGinLog redirects gin's writers to a dated log file when --log-dir is
// set, mirroring stdout/stderr either way.
func SetupGinLog() {
	if *LogDir == "" {
		return
	}
	logPath := filepath.Join(*LogDir, fmt.Sprintf("vikoba-%s.log", time.Now().Format("20060102")))
	fd, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatal("failed to open log file")
	}
	gin.DefaultWriter = io.MultiWriter(os.Stdout, fd)
	gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, fd)
}

func SysLog(s string) {
	t := time.Now()
	_, _ = fmt.Fprintf(gin.DefaultWriter, "[SYS] %v | %s \n", t.Format(timeFormat), s)
}

func SysError(s string) {
	t := time.Now()
	_, _ = fmt.Fprintf(gin.DefaultErrorWriter, "[ERR] %v | %s \n", t.Format(timeFormat), s)
}

func FatalLog(v ...any) {
	t := time.Now()
	_, _ = fmt.Fprintf(gin.DefaultErrorWriter, "[FATAL] %v | %v \n", t.Format(timeFormat), v)
	os.Exit(1)
}
