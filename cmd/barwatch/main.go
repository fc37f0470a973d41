package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"free-shipping-bar/internal/application"
	"free-shipping-bar/internal/banner"
	"free-shipping-bar/internal/infrastructure/metrics"
	"free-shipping-bar/internal/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stdin).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "barwatch:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer, in io.Reader) *cli.Command {
	return &cli.Command{
		Name:  "barwatch",
		Usage: "run the free shipping bar against a live storefront cart and print every banner change",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "store",
				Usage:    "storefront base URL, e.g. https://demo.myshopify.com",
				Sources:  cli.EnvVars("BARWATCH_STORE"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "cookie",
				Usage:   "Cookie header identifying the cart, e.g. cart=abc123",
				Sources: cli.EnvVars("BARWATCH_COOKIE"),
			},
			&cli.StringFlag{
				Name:    "settings-url",
				Usage:   "URL returning the settings JSON (app proxy route)",
				Sources: cli.EnvVars("BARWATCH_SETTINGS_URL"),
			},
			&cli.StringFlag{
				Name:  "settings-file",
				Usage: "path to a settings JSON document",
			},
			&cli.Int64Flag{
				Name:  "threshold",
				Usage: "free shipping threshold in minor units",
			},
			&cli.StringFlag{
				Name:  "message",
				Usage: "message template with {price} and {threshold}",
			},
			&cli.BoolFlag{
				Name:  "calculate-difference",
				Usage: "show the remaining amount instead of the static message",
			},
			&cli.DurationFlag{
				Name:  "poll",
				Usage: "cart polling interval, overrides the settings",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "snapshot cache file",
				Value: ".barwatch-cart.json",
			},
			&cli.BoolFlag{
				Name:  "stdin-events",
				Usage: "treat every line read from stdin as a cart event",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return watch(ctx, cmd, out, in)
		},
	}
}

func watch(ctx context.Context, cmd *cli.Command, out io.Writer, in io.Reader) error {
	log := logger.New(logger.Options{
		ServiceName: "barwatch",
		Level:       logger.ParseLevel(cmd.String("log-level")),
		Format:      "console",
		Output:      os.Stderr,
	})

	httpClient := &http.Client{Timeout: 15 * time.Second}

	settings, err := loadSettings(ctx, httpClient, settingsSource{
		URL:  cmd.String("settings-url"),
		File: cmd.String("settings-file"),
	})
	if err != nil {
		return err
	}
	if cmd.IsSet("threshold") {
		settings.ThresholdMinor = cmd.Int64("threshold")
	}
	if cmd.IsSet("message") {
		settings.MessageTemplate = cmd.String("message")
	}
	if cmd.IsSet("calculate-difference") {
		settings.CalculateDifference = cmd.Bool("calculate-difference")
	}
	if cmd.IsSet("poll") {
		settings.PollIntervalMs = int(cmd.Duration("poll") / time.Millisecond)
	}
	settings.Normalize()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if addr := cmd.String("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer srv.Close()
	}

	observers := []banner.Observer{
		banner.PollingObserver{Interval: settings.PollInterval()},
	}
	if cmd.Bool("stdin-events") {
		observers = append(observers, banner.EventObserver{Events: lines(ctx, in)})
	}

	renderer := banner.NewElementRenderer(application.ElementID, out)
	rt := banner.Start(ctx, settings, banner.Deps{
		Reader:    banner.NewHTTPCartReader(cmd.String("store"), cmd.String("cookie"), httpClient),
		Renderer:  renderer,
		Cache:     banner.NewFileSnapshotCache(cmd.String("cache")),
		Observers: observers,
		Metrics:   m,
		Logger:    log,
	})

	log.Info().
		Str("store", cmd.String("store")).
		Bool("enabled", settings.Enabled).
		Bool("calculateDifference", settings.CalculateDifference).
		Int64("thresholdMinor", settings.ThresholdMinor).
		Dur("poll", settings.PollInterval()).
		Msg("Watching cart")

	<-ctx.Done()
	rt.Stop()

	log.Info().
		Int("reads", rt.Reads()).
		Int("transitions", renderer.Transitions()).
		Str("state", string(rt.State())).
		Msg("Stopped")
	return nil
}

// lines forwards each stdin line as an event name.
func lines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			name := scanner.Text()
			if name == "" {
				name = "cart:updated"
			}
			select {
			case ch <- name:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
