package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"chanfeed/internal/config"
	"chanfeed/internal/feed"
	"chanfeed/internal/httpapi"
	"chanfeed/internal/logging"
	"chanfeed/internal/metrics"
	"chanfeed/internal/publish"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "channels":
		cmdChannels(args)
	case "fetch":
		cmdRun(args, "fetch")
	case "publish", "deploy":
		cmdRun(args, "publish")
	case "serve":
		cmdServe(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `chanfeed - curated video feed from registered channels

Usage:
  chanfeed channels list                    List registered channels
  chanfeed channels add <url-or-handle>     Register a channel
  chanfeed channels remove <channel-id>     Unregister a channel
  chanfeed fetch [flags]                    Refresh videos.json only
  chanfeed publish [flags]                  Refresh, commit and push the feed
  chanfeed serve [flags]                    Run the HTTP API
  chanfeed help                             Show this help message

Examples:
  chanfeed channels add https://www.youtube.com/@somechannel
  chanfeed channels add @somechannel
  chanfeed fetch -days 30
  chanfeed publish
  chanfeed serve -addr :8080

Configuration is read from CHANFEED_* environment variables, then
chanfeed.json or ~/.config/chanfeed/chanfeed.json.

For help on specific command: chanfeed <command> -h
`)
}

// setup loads configuration and wires the application.
func setup(ctx context.Context) (*feed.App, zerolog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, "chanfeed", cfg.LogFormat == "console")
	app, err := feed.Open(ctx, cfg, log, metrics.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return app, log
}

func cmdChannels(args []string) {
	fs := flag.NewFlagSet("channels", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print channels as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chanfeed channels [flags] list|add <url-or-handle>|remove <channel-id>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	app, _ := setup(ctx)

	switch argv[0] {
	case "list", "ls":
		channels := app.Service.ListChannels()
		if *asJSON {
			printJSON(channels)
			return
		}
		if len(channels) == 0 {
			fmt.Println("No channels registered.")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CHANNEL ID\tHANDLE\tTITLE")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ch.ID, ch.Handle, truncate(ch.Title, 50))
		}
		w.Flush()
		fmt.Fprintf(os.Stderr, "\nTotal: %d channels\n", len(channels))

	case "add":
		if len(argv) < 2 {
			fmt.Fprintf(os.Stderr, "Error: missing url-or-handle\n")
			os.Exit(1)
		}
		ch, err := app.Service.AddChannel(ctx, argv[1])
		if err != nil {
			fail(err)
		}
		if *asJSON {
			printJSON(ch)
			return
		}
		fmt.Printf("Added %s (%s) as %s\n", ch.Title, ch.Handle, ch.ID)

	case "remove", "rm":
		if len(argv) < 2 {
			fmt.Fprintf(os.Stderr, "Error: missing channel-id\n")
			os.Exit(1)
		}
		if err := app.Service.RemoveChannel(argv[1]); err != nil {
			fail(err)
		}
		fmt.Printf("Removed %s\n", argv[1])

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown channels subcommand %q\n", argv[0])
		fs.Usage()
		os.Exit(1)
	}
}

func cmdRun(args []string, mode string) {
	fs := flag.NewFlagSet(mode, flag.ExitOnError)
	days := fs.Int("days", 0, "Recency window in days (default from config)")
	asJSON := fs.Bool("json", false, "Print the run report as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chanfeed %s [flags]\n\nFlags:\n", mode)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app, _ := setup(ctx)

	window := *days
	if window == 0 {
		window = app.Config.WindowDays
	}

	run := app.Service.Publish
	if mode == "fetch" {
		run = app.Service.FetchOnly
	}

	fmt.Fprintf(os.Stderr, "Fetching videos from the last %d days...\n", window)
	report, err := run(ctx, window)
	if report != nil {
		if *asJSON {
			printJSON(report)
		} else {
			printReport(report)
		}
	}
	if err != nil {
		fail(err)
	}
}

func printReport(r *publish.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tOUTCOME\tDETAIL")
	for _, s := range r.Log {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Step, s.Outcome, truncate(firstLine(s.Detail), 70))
	}
	w.Flush()

	if buckets := r.Histogram.Sorted(); len(buckets) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tVIDEOS")
		for _, b := range buckets {
			fmt.Fprintf(w, "%s\t%d\n", b.Name, b.Count)
		}
		w.Flush()
	}

	fmt.Printf("\n%s\n", r.Message)
	fmt.Fprintf(os.Stderr, "Videos: %d  Channels: %d  Failed: %d  Took: %s\n",
		r.VideoCount, r.ChannelsProcessed, r.ChannelsFailed, r.Duration.Round(time.Millisecond))
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (default from config)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chanfeed serve [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app, log := setup(ctx)

	listen := app.Config.Addr
	if *addr != "" {
		listen = *addr
	}

	srv := httpapi.New(app.Service, httpapi.Options{
		CORSOrigins: app.Config.CORSOrigins,
		Development: !app.Config.IsProduction(),
		DefaultDays: app.Config.WindowDays,
		Logger:      log,
		Metrics:     app.Metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listen).Str("env", app.Config.Environment).Msg("server starting")
		errCh <- srv.Listen(listen)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}
	log.Info().Msg("server exited")
}

// fail prints err and exits. Context cancellation exits quietly with 130.
func fail(err error) {
	if errors.Is(err, context.Canceled) {
		os.Exit(130)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
