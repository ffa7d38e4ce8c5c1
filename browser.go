package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type browserOptions struct {
	headless     bool
	timeout      time.Duration // per browser operation
	sdkGlobal    string        // name of the widget's window global
	scriptOrigin string        // matched against script src to find widget scripts
}

// browser is a headless Chrome tab showing the harness page, it serves as
// the session's script loader and widget sdk
type browser struct {
	ctx     context.Context
	cancel  context.CancelFunc
	server  *http.Server
	pageURL string
	opts    browserOptions
}

// newBrowser sets up the browser contexts and the harness page server,
// Chrome itself is only started by open
func newBrowser(ctx context.Context, opts browserOptions, logger *zap.Logger) (*browser, error) {
	server, pageURL, err := serveHarnessPage()
	if err != nil {
		return nil, err
	}

	// setup browser options
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)

	// create context with ExecAllocator
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)

	// create browser context
	sugar := logger.Sugar()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	return &browser{
		ctx:     browserCtx,
		cancel:  cancel,
		server:  server,
		pageURL: pageURL,
		opts:    opts,
	}, nil
}

// open starts Chrome and navigates to the harness page with the console
// hook installed
func (b *browser) open() error {
	err := chromedp.Run(b.ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(consoleHookJS).Do(ctx)
			return err
		}),
		chromedp.Navigate(b.pageURL),
	)
	if err != nil {
		return fmt.Errorf("failed to open harness page: %w", err)
	}

	return nil
}

// close shuts down Chrome and the harness page server
func (b *browser) close() {
	b.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.server.Shutdown(shutdownCtx)
}

// run executes actions on the harness tab with the operation timeout
func (b *browser) run(ctx context.Context, actions ...chromedp.Action) error {
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, b.opts.timeout)
	defer cancelTimeout()

	return chromedp.Run(timeoutCtx, actions...)
}

// load removes any widget script already in the page and installs the
// one at url, returning once it has executed
func (b *browser) load(ctx context.Context, url string) error {
	args, err := jsArgs(b.opts.scriptOrigin, url)
	if err != nil {
		return fmt.Errorf("%v: %w", err, errLoadFailure)
	}

	var loaded bool
	err = b.run(ctx, chromedp.Evaluate(fmt.Sprintf(loadScriptJS, args...), &loaded, awaitPromise))
	if err != nil {
		return fmt.Errorf("%v: %w", err, errLoadFailure)
	}

	return nil
}

// available reports whether the widget global is callable
func (b *browser) available(ctx context.Context) (bool, error) {
	args, err := jsArgs(b.opts.sdkGlobal)
	if err != nil {
		return false, fmt.Errorf("%v: %w", err, errSDKInvocation)
	}

	var ok bool
	err = b.run(ctx, chromedp.Evaluate(fmt.Sprintf(sdkAvailableJS, args...), &ok))
	if err != nil {
		return false, fmt.Errorf("%v: %w", err, errSDKInvocation)
	}

	return ok, nil
}

func (b *browser) boot(ctx context.Context, settings map[string]any) error {
	return b.call(ctx, "boot", settings)
}

func (b *browser) update(ctx context.Context, data map[string]any) error {
	return b.call(ctx, "update", data)
}

func (b *browser) shutdown(ctx context.Context) error {
	return b.call(ctx, "shutdown")
}

// call invokes a method of the widget global with the given arguments
func (b *browser) call(ctx context.Context, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}

	args, err := jsArgs(b.opts.sdkGlobal, method, params)
	if err != nil {
		return fmt.Errorf("%v: %w", err, errSDKInvocation)
	}

	var ok bool
	err = b.run(ctx, chromedp.Evaluate(fmt.Sprintf(sdkCallJS, args...), &ok))
	if err != nil {
		return fmt.Errorf("%v: %w", err, errSDKInvocation)
	}

	return nil
}

// documentHTML returns the serialized DOM of the harness page
func (b *browser) documentHTML(ctx context.Context) (string, error) {
	var html string
	err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}

	return html, nil
}

// consoleMessages drains console errors and warnings captured since the
// last call
func (b *browser) consoleMessages(ctx context.Context) ([]string, error) {
	var messages []string
	err := b.run(ctx, chromedp.Evaluate(drainConsoleJS, &messages))
	if err != nil {
		return nil, fmt.Errorf("failed to read console messages: %w", err)
	}

	return messages, nil
}

// scriptCount returns how many widget scripts are installed in the page
func (b *browser) scriptCount(ctx context.Context) (int, error) {
	args, err := jsArgs(b.opts.scriptOrigin)
	if err != nil {
		return 0, err
	}

	var count int
	err = b.run(ctx, chromedp.Evaluate(fmt.Sprintf(scriptCountJS, args...), &count))
	if err != nil {
		return 0, fmt.Errorf("failed to count widget scripts: %w", err)
	}

	return count, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// serveHarnessPage serves the harness page on a loopback port
func serveHarnessPage() (*http.Server, string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen for harness page: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, harnessPageHTML)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("⚠️ harness page server stopped: %v\n", err)
		}
	}()

	return server, "http://" + listener.Addr().String() + "/", nil
}
