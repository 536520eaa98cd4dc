package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"untiscal/internal/config"
	"untiscal/internal/ics"
	appLog "untiscal/internal/log"
	"untiscal/internal/timetable"
	"untiscal/internal/untis"
	"untiscal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	output     string
	once       bool
}

func main() {
	appLog.Info("untiscal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.output != "" {
		conf.Output = flags.output
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"server", conf.Server,
		"school", conf.School,
		"timezone", conf.Timezone,
		"output", conf.Output,
		"days_back", conf.DaysBack,
		"days_forward", conf.DaysForward,
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once || conf.RefreshCron == "" {
		if err := runSync(ctx, conf); err != nil {
			appLog.Error("sync failed", err)
			os.Exit(1)
		}
		appLog.Info("untiscal exiting")
		return
	}

	runDaemon(ctx, conf)
	appLog.Info("untiscal exiting")
}

// runDaemon performs an initial sync, then re-syncs on the configured
// cron schedule while serving the artifact over HTTP. A failed scheduled
// sync leaves the previous artifact in place.
func runDaemon(ctx context.Context, conf *config.Config) {
	if err := runSync(ctx, conf); err != nil {
		appLog.Error("initial sync failed", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := runSync(ctx, conf); err != nil {
			appLog.Error("scheduled sync failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf).Handler(),
	}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// runSync executes one full sync: login, element resolution, chunked
// timetable retrieval, consolidation, calendar write.
func runSync(ctx context.Context, conf *config.Config) error {
	emitter, err := ics.NewEmitter(conf.Timezone)
	if err != nil {
		return err
	}

	client := untis.NewClient(conf.Server, conf.School)
	if err := client.Authenticate(ctx, conf.Username, conf.Password); err != nil {
		return err
	}
	defer client.Logout(ctx)

	element, err := client.ResolveElement(ctx, conf.ClassID)
	if err != nil {
		return err
	}

	start, end := timetable.Range(time.Now(), conf.DaysBack, conf.DaysForward)
	periods := client.Timetable(ctx, element, start, end)

	lessons := timetable.Consolidate(periods)
	appLog.Info("timetable consolidated", "raw_count", len(periods), "lesson_count", len(lessons))

	return emitter.WriteFile(conf.Output, lessons)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.output, "out", "", "Output ICS path (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run a single sync and exit even if a refresh schedule is configured")

	flag.Parse()

	return cfg
}
