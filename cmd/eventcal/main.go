package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"eventcal/internal/atom"
	"eventcal/internal/capture"
	"eventcal/internal/config"
	"eventcal/internal/feed"
	"eventcal/internal/gcal"
	"eventcal/internal/ics"
	"eventcal/internal/loader"
	appLog "eventcal/internal/log"
	"eventcal/internal/render"
	"eventcal/internal/report"
	"eventcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	defer appLog.Sync()

	appLog.Info("eventcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"provider", conf.Provider,
		"feed", conf.Feed,
		"refresh", conf.RefreshCron,
		"transition_interval_ms", conf.Transition.IntervalMs,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(ctx, conf)
	if err != nil {
		appLog.Error("failed to create feed provider", err, "provider", conf.Provider)
		os.Exit(1)
	}
	l := loader.New(provider, conf.Feed, conf.TransitionSettings())

	if flags.once {
		if err := runOnce(ctx, l); err != nil {
			os.Exit(1)
		}
		return
	}

	srv, err := web.NewServer(conf, l)
	if err != nil {
		appLog.Error("failed to create web server", err)
		os.Exit(1)
	}

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, conf, srv, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	if conf.RefreshCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(conf.RefreshCron, srv.Hub().ReloadAll); err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	if err := srv.StartServer(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("eventcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch the feed once, print the list and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Serve the page, save a PNG of it to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func newProvider(ctx context.Context, conf *config.Config) (feed.Provider, error) {
	switch conf.Provider {
	case config.ProviderAtom:
		return atom.New(nil), nil
	case config.ProviderGoogle:
		return gcal.New(ctx, gcal.Options{APIKey: conf.APIKey, Endpoint: conf.Endpoint})
	case config.ProviderICS:
		return ics.New(ics.Options{}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", conf.Provider)
	}
}

// runOnce performs a single fetch and prints the list. Failures are logged
// with the same messages the page would alert.
func runOnce(ctx context.Context, l *loader.Loader) error {
	events, err := l.Fetch(ctx)
	if err != nil {
		for _, msg := range report.Messages(err) {
			appLog.Error("feed load failed", errors.New(msg), "feed", l.FeedID())
		}
		return err
	}
	if err := render.Console(os.Stdout, events); err != nil {
		appLog.Error("failed to print events", err)
		return err
	}
	return nil
}

// runSnapshot serves the page until one capture has completed.
func runSnapshot(parent context.Context, conf *config.Config, srv *web.Server, output string) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.StartServer(ctx) }()

	base := localURL(conf)
	if err := waitHealthy(ctx, base+"health", 5*time.Second); err != nil {
		return err
	}

	pageURL := base
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		u, _ := url.Parse(base)
		u.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
		pageURL = u.String()
	}

	res, err := capture.Snapshot(ctx, capture.Options{URL: pageURL, OutputPath: output})
	if err != nil {
		return err
	}
	appLog.Info("snapshot written", "output", output, "ok", res.OK, "alerts", len(res.Alerts))

	cancel()
	return <-errCh
}

// localURL turns the listen address into a loopback URL with a trailing
// slash.
func localURL(conf *config.Config) string {
	host, port, err := net.SplitHostPort(conf.Listen)
	if err != nil {
		return "http://" + conf.Listen + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func waitHealthy(ctx context.Context, healthURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server not healthy after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
