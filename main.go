package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"vikoba/backend/api/route"
	"vikoba/backend/common"
	"vikoba/backend/model"
	"vikoba/backend/storage"
)

func main() {
	flag.Parse()
	if *common.PrintVersion {
		println(common.Version)
		os.Exit(0)
	}
	if *common.PrintHelpFlag {
		common.PrintHelp()
		os.Exit(0)
	}
	common.SetupGinLog()
	common.SysLog(common.SystemName + " " + common.Version + " started")
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := common.LoadConfigFile(); err != nil {
		common.FatalLog(err)
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		common.UploadPath = dir
	}

	if err := model.InitDB(); err != nil {
		common.FatalLog(err)
	}
	defer func() {
		if err := model.CloseDB(); err != nil {
			common.SysError("failed to close database: " + err.Error())
		}
	}()

	store, err := storage.New(common.UploadPath)
	if err != nil {
		common.FatalLog(err)
	}
	common.SysLog("storage root: " + common.UploadPath)

	router := gin.Default()
	route.SetRouter(router, store)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(*common.Port),
		Handler: router,
	}

	go func() {
		common.SysLog("listening on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.FatalLog(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	common.SysLog("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.SysError("forced shutdown: " + err.Error())
	}
}
