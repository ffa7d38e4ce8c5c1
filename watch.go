package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// pageWatcher reports failed requests made by the widget and JavaScript
// dialogs opened by injected payloads. Handlers run on chromedp's event
// goroutine.
type pageWatcher struct {
	log        *eventLog
	pageOrigin string // requests to the harness page itself are skipped
	dismiss    func(ctx context.Context) error

	mu       sync.Mutex
	requests map[network.RequestID]string
	dialogs  atomic.Int64
}

func newPageWatcher(log *eventLog, pageOrigin string) *pageWatcher {
	return &pageWatcher{
		log:        log,
		pageOrigin: pageOrigin,
		dismiss:    dismissDialog,
		requests:   map[network.RequestID]string{},
	}
}

// listen attaches the watcher to the browser tab in ctx
func (w *pageWatcher) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev any) {
		w.handle(ctx, ev)
	})
}

func (w *pageWatcher) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		if ev.Request == nil || !w.watched(ev.Request.URL) {
			return
		}
		w.mu.Lock()
		w.requests[ev.RequestID] = ev.Request.URL
		w.mu.Unlock()

	case *network.EventResponseReceived:
		if ev.Response == nil || !w.watched(ev.Response.URL) {
			return
		}
		if ev.Response.Status >= 400 {
			w.log.append(fmt.Sprintf("HTTP %d for %s", ev.Response.Status, ev.Response.URL), severityWarning)
		}

	case *network.EventLoadingFinished:
		w.forget(ev.RequestID)

	case *network.EventLoadingFailed:
		url, ok := w.forget(ev.RequestID)
		if !ok || ev.Canceled {
			return
		}
		w.log.append(fmt.Sprintf("Request failed: %s (%s)", url, ev.ErrorText), severityError)

	case *page.EventJavascriptDialogOpening:
		w.dialogs.Add(1)
		w.log.append(fmt.Sprintf("JavaScript %s dialog opened by page: %s", ev.Type, ev.Message), severityError)

		// a pending dialog blocks every other evaluation on the tab
		go func() {
			err := w.dismiss(ctx)
			if err != nil {
				w.log.append(fmt.Sprintf("Failed to dismiss dialog: %v", err), severityError)
			}
		}()
	}
}

// dialogCount returns the number of dialogs opened so far
func (w *pageWatcher) dialogCount() int64 {
	return w.dialogs.Load()
}

func (w *pageWatcher) watched(url string) bool {
	if w.pageOrigin != "" && strings.HasPrefix(url, w.pageOrigin) {
		return false
	}

	return !isIgnoredResource(url, ignoredRequestPatterns)
}

func (w *pageWatcher) forget(id network.RequestID) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	url, ok := w.requests[id]
	delete(w.requests, id)

	return url, ok
}

func dismissDialog(ctx context.Context) error {
	return chromedp.Run(ctx, page.HandleJavaScriptDialog(false))
}
