package common

import "flag"

var Version = "v0.3.0"
var SystemName = "Vikoba"

var (
	Port          = flag.Int("port", 3000, "the listening port")
	LogDir        = flag.String("log-dir", "", "specify the log directory")
	PrintVersion  = flag.Bool("version", false, "print version and exit")
	PrintHelpFlag = flag.Bool("help", false, "print help and exit")
)

// SQLitePath is used when SQL_DSN is not set. Tests override it.
var SQLitePath = "data/vikoba.db"

// UploadPath is the storage root for all entity document trees.
var UploadPath = "data/uploads"

func PrintHelp() {
	println("Vikoba " + Version + " - record keeping backend for community savings groups")
	println("Usage: vikoba [--port <port>] [--log-dir <log dir>]")
	flag.PrintDefaults()
}
