package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lmittmann/tint"

	"github.com/Kartikjoshi26/WeCall/internal/config"
	"github.com/Kartikjoshi26/WeCall/internal/signalling"
)

func main() {
	configDir := flag.String("config", "conf", "directory with the configuration files")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))

	manager, err := config.NewManager(*configDir)
	if err != nil {
		slog.Error("cannot load configuration", "configDir", *configDir, "error", err)
		os.Exit(1)
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	server := signalling.NewServer(manager, app)
	defer server.Close()
	server.SetupRoutes()

	// The listen address and TLS material cannot be swapped on a live
	// listener; only these stay pinned to the startup snapshot.
	cfg := manager.Get()
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	if cfg.Security.TLSCrtFile != nil && cfg.Security.TLSKeyFile != nil {
		slog.Info("signalling server listening with TLS", "addr", addr)
		err = app.ListenTLS(addr, *cfg.Security.TLSCrtFile, *cfg.Security.TLSKeyFile)
	} else {
		slog.Info("signalling server listening", "addr", addr)
		err = app.Listen(addr)
	}
	if err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
