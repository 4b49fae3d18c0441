package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"bincfg/internal/cli"
	"bincfg/internal/runtime"
)

func main() {
	runtime.SetupSlog(os.Getenv("BINCFG_LOG_LEVEL") == "debug")
	defer runtime.RecoverPanic("main", func() {
		slog.Error("bincfg terminated due to an unhandled panic")
	})

	if os.Getenv("BINCFG_PROFILE") != "" {
		go func() {
			slog.Info("serving pprof at localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("pprof listen failed", "error", err)
			}
		}()
	}

	cli.Execute()
}
