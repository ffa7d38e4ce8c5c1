package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"
)

type config struct {
	appID          string
	userID         string
	email          string
	name           string
	customData     string
	sdkGlobal      string
	widgetURL      string
	apiBase        string
	settle         time.Duration
	timeout        time.Duration
	strictIdentity bool
	logRetain      int
	payloads       string
	output         string
	run            string
	headless       bool
	verbose        bool
	debugLog       string
}

func main() {
	config := parseFlags()

	err := config.validate()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, config)
	if err != nil {
		log.Fatal(err)
	}
}

// parseFlags parses command line flags and returns a config
func parseFlags() config {
	var config config

	// define flags
	flag.StringVar(&config.appID, "app-id", "", "Widget app ID")
	flag.StringVar(&config.userID, "user-id", "", "User ID passed to boot")
	flag.StringVar(&config.email, "email", "", "User email passed to boot")
	flag.StringVar(&config.name, "name", "", "User name passed to boot")
	flag.StringVar(&config.customData, "custom-data", "{}", "JSON object spread over the boot settings and sent on update")
	flag.StringVar(&config.sdkGlobal, "sdk-global", "Intercom", "Name of the widget's window global")
	flag.StringVar(&config.widgetURL, "widget-url", "https://widget.intercom.io/widget/", "Widget script URL prefix, the app ID is appended")
	flag.StringVar(&config.apiBase, "api-base", "https://api-iam.intercom.io", "API base passed to boot and probed by endpoints")
	flag.DurationVar(&config.settle, "settle", time.Second, "Delay between script load and boot")
	flag.DurationVar(&config.timeout, "timeout", 30*time.Second, "Timeout for each browser operation and endpoint probe")
	flag.BoolVar(&config.strictIdentity, "strict-identity", false, "Keep named identity fields when custom data repeats them")
	flag.IntVar(&config.logRetain, "log-retain", 0, "Maximum number of log entries kept in memory. 0 = unbounded")
	flag.StringVar(&config.payloads, "payloads", "", "Path to CSV file with name,payload rows for batch")
	flag.StringVar(&config.output, "output", "", "Path to output CSV report. Empty = no report")
	flag.StringVar(&config.run, "run", "", "Semicolon separated commands to run instead of the interactive console")
	flag.BoolVar(&config.headless, "headless", true, "Run Chrome headless")
	flag.BoolVar(&config.verbose, "verbose", false, "Log debug output, including the Chrome DevTools protocol")
	flag.StringVar(&config.debugLog, "debug-log", "", "Path to write diagnostic logs to instead of stderr")

	flag.Parse()
	return config
}

// validate ensures the configuration is valid
func (c *config) validate() error {
	if c.sdkGlobal == "" {
		return fmt.Errorf("sdk global name cannot be empty")
	}

	_, err := newEndpoint(c.widgetURL)
	if err != nil {
		return fmt.Errorf("invalid widget URL: %w", err)
	}

	_, err = newEndpoint(c.apiBase)
	if err != nil {
		return fmt.Errorf("invalid API base: %w", err)
	}

	if c.settle < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}

	if c.timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.logRetain < 0 {
		return fmt.Errorf("log retain cannot be negative")
	}

	return nil
}

// mergeMode returns how custom data is merged with the identity fields
func (c *config) mergeMode() mergeMode {
	if c.strictIdentity {
		return mergeIdentityWins
	}

	return mergeCustomWins
}

// run starts the browser and the console, and writes the report once
// the console exits
func run(ctx context.Context, cfg config) error {
	logger, err := newLogger(cfg.verbose, cfg.debugLog)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	source, err := NewCSVPayloadSource(cfg.payloads)
	if err != nil {
		return err
	}
	payloads, err := source.Extract(ctx)
	if err != nil {
		return err
	}

	sink, err := NewCSVSink(cfg.output)
	if err != nil {
		return err
	}

	widget, _ := newEndpoint(cfg.widgetURL)
	b, err := newBrowser(ctx, browserOptions{
		headless:     cfg.headless,
		timeout:      cfg.timeout,
		sdkGlobal:    cfg.sdkGlobal,
		scriptOrigin: widget.host,
	}, logger)
	if err != nil {
		return err
	}
	defer b.close()

	events := newEventLog(newTerminalDisplay(os.Stdout), logger, cfg.logRetain)

	watcher := newPageWatcher(events, b.pageURL)
	watcher.listen(b.ctx)

	// open headless browser with the harness page
	spin := newSpinner(os.Stdout)
	spin.start("Starting browser")
	err = b.open()
	spin.stop(err == nil)
	if err != nil {
		return err
	}

	sess := newSession(events, b, b, sessionOptions{
		widgetURL: cfg.widgetURL,
		apiBase:   cfg.apiBase,
		settle:    cfg.settle,
		merge:     cfg.mergeMode(),
	})

	h := &harness{
		session: sess,
		log:     events,
		page:    b,
		prober:  newProber(events, os.Stdout, cfg.timeout),
		form: widgetConfig{
			appID:      cfg.appID,
			userID:     cfg.userID,
			email:      cfg.email,
			name:       cfg.name,
			customData: cfg.customData,
		},
		payloads: payloads,
		dialogs:  watcher.dialogCount,
		endpoints: func(appID string) []string {
			return widgetEndpoints(cfg.widgetURL, cfg.apiBase, appID)
		},
		out: os.Stdout,
	}

	events.append("Intercom Testing Platform Ready", severitySuccess)
	events.append("Configure your App ID and test various payloads", severityInfo)

	// operations use the browser context so they run against the harness tab
	if cfg.run != "" {
		err = h.runScript(b.ctx, cfg.run)
	} else {
		fmt.Println(`Type "help" for a list of commands.`)
		err = h.repl(b.ctx, os.Stdin)
	}
	err = consoleExit(err)
	if err != nil {
		return err
	}

	if sink != nil {
		err = sink.WriteResults(h.results)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Report written to %s\n", cfg.output)
	}

	return nil
}

// consoleExit treats an interrupt as a normal exit so the report is still
// written
func consoleExit(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
