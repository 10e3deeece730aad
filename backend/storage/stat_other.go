//go:build !linux

package storage

import (
	"os"
	"time"
)

func fileCreatedAt(info os.FileInfo) time.Time {
	return info.ModTime()
}
