package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ticketgate/config"
	"ticketgate/console"
	"ticketgate/handlers"
	"ticketgate/logger"
	"ticketgate/scanner"
	"ticketgate/session"
	"ticketgate/telemetry"
)

type options struct {
	envFile  string
	camera   string
	spoolDir string
	logFile  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("ticketgate", pflag.ContinueOnError)
	flagSet.StringVar(&opts.envFile, "config", ".env", "path to .env file")
	flagSet.StringVar(&opts.camera, "camera", "", "camera mode: push, spool or none (overrides CAMERA_MODE)")
	flagSet.StringVar(&opts.spoolDir, "spool-dir", "", "directory watched in spool mode (overrides CAMERA_SPOOL_DIR)")
	flagSet.StringVar(&opts.logFile, "log-file", "ticketgate.log", "log file used by the console")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.LoadWithPath(opts.envFile)
	if err != nil {
		return err
	}
	if opts.camera != "" {
		cfg.Camera.Mode = opts.camera
	}
	if opts.spoolDir != "" {
		cfg.Camera.SpoolDir = opts.spoolDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	args := flagSet.Args()
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "console":
		return runConsole(cfg, opts.logFile)
	case "signin":
		if len(args) != 1 {
			return fmt.Errorf("usage: ticketgate signin <brand>")
		}
		return signIn(cfg, args[0])
	case "signout":
		return signOut(cfg)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(cfg *config.Config) error {
	if err := initLogger(cfg, nil); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()
	initTelemetry(ctx, cfg, log)
	defer telemetry.Shutdown(ctx)

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var sc *scanner.Scanner
	device, push, err := newDevice(cfg.Camera)
	if err != nil {
		return err
	}
	if device != nil {
		sc = scanner.New(device, handlers.DecodeHandler(a.store, a.stations, log), log)
		defer sc.Close()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Store:          a.store,
		Stations:       a.stations,
		Journal:        a.journal,
		Scanner:        sc,
		Push:           push,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Station API listening", zap.String("addr", srv.Addr), zap.String("camera", cfg.Camera.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	log.Info("Shutting down station...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Station exited gracefully")
	return nil
}

func runConsole(cfg *config.Config, logFile string) error {
	// The TUI owns the terminal, so logs go to a file.
	if err := initLogger(cfg, []string{logFile}); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()
	initTelemetry(ctx, cfg, log)
	defer telemetry.Shutdown(ctx)

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	brand, err := a.store.Brand(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return fmt.Errorf("no operator signed in; run `ticketgate signin <brand>` first")
	}
	if err != nil {
		return err
	}

	camera := cfg.Camera
	if camera.Mode == "push" {
		log.Warn("Push camera needs the HTTP API; console runs without a camera")
		camera.Mode = "none"
	}
	device, _, err := newDevice(camera)
	if err != nil {
		return err
	}

	log.Info("Console started", zap.String("brand", brand))
	return console.Run(a.stations.For(brand), device, log)
}

func signIn(cfg *config.Config, brand string) error {
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SignIn(context.Background(), brand); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", brand)
	return nil
}

func signOut(cfg *config.Config) error {
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SignOut(context.Background()); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func initLogger(cfg *config.Config, outputs []string) error {
	return logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPaths: outputs,
	})
}

func initTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) {
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if err := telemetry.Init(ctx, telemetryCfg); err != nil {
		log.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		log.Info("Telemetry initialized", zap.String("collector", telemetryCfg.CollectorAddr))
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ticketgate runs a door-side ticket validation station.

Usage:
  ticketgate [flags] [serve]        run the operator HTTP API (default)
  ticketgate [flags] console        run the terminal operator console
  ticketgate [flags] signin <brand> sign in an operator
  ticketgate [flags] signout        sign out

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
