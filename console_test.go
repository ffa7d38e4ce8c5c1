package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPage struct {
	html     string
	htmlErr  error
	console  []string
	scripts  int
	htmlRead int
}

func (p *stubPage) documentHTML(context.Context) (string, error) {
	p.htmlRead++
	return p.html, p.htmlErr
}

func (p *stubPage) consoleMessages(context.Context) ([]string, error) {
	messages := p.console
	p.console = nil
	return messages, nil
}

func (p *stubPage) scriptCount(context.Context) (int, error) { return p.scripts, nil }

type harnessFixture struct {
	*sessionFixture
	h    *harness
	page *stubPage
	out  *bytes.Buffer
}

func newHarnessFixture() *harnessFixture {
	f := newSessionFixture(mergeCustomWins)
	page := &stubPage{html: "<html><body><div id=\"widgetScriptContainer\"></div></body></html>"}
	out := &bytes.Buffer{}

	h := &harness{
		session: f.sess,
		log:     f.log,
		page:    page,
		prober:  newProber(f.log, out, time.Second),
		form:    testConfig(),
		endpoints: func(appID string) []string {
			return widgetEndpoints("https://widget.intercom.io/widget/", "https://api-iam.intercom.io", appID)
		},
		out: out,
	}

	return &harnessFixture{sessionFixture: f, h: h, page: page, out: out}
}

func TestXSSLoadsPayload(t *testing.T) {
	f := newHarnessFixture()

	f.h.exec(context.Background(), "xss img")

	assert.Equal(t, `<img src=x onerror=alert("XSS")>`, f.h.payload)
	last := f.log.recent(1)[0]
	assert.Equal(t, severityWarning, last.severity)
	assert.Equal(t, `Loaded img XSS payload: <img src=x onerror=alert("XSS")>`, last.message)
}

func TestXSSUnknownKindFallsBackToBasic(t *testing.T) {
	f := newHarnessFixture()

	f.h.exec(context.Background(), "xss polyglot")

	assert.Equal(t, `<script>alert("XSS")</script>`, f.h.payload)
	assert.Equal(t, `Loaded polyglot XSS payload: <script>alert("XSS")</script>`, f.log.recent(1)[0].message)

	f.h.exec(context.Background(), "xss")
	assert.Equal(t, `Loaded basic XSS payload: <script>alert("XSS")</script>`, f.log.recent(1)[0].message)
}

func TestCustomPayloadReinitializesWithName(t *testing.T) {
	f := newHarnessFixture()
	ctx := context.Background()

	f.h.exec(ctx, "xss svg")
	f.h.exec(ctx, "payload")

	require.Len(t, f.sdk.bootCalls, 1)
	assert.Equal(t, `<svg onload=alert("XSS")>`, f.sdk.bootCalls[0]["name"])
	assert.Equal(t, `<svg onload=alert("XSS")>`, f.h.form.name)
	assert.Contains(t, messages(f.log.recent(10)), `Testing payload in user name: <svg onload=alert("XSS")>`)
	assert.Equal(t, stateInitialized, f.sess.state)
}

func TestSetKeepsSpacesInValue(t *testing.T) {
	f := newHarnessFixture()

	f.h.exec(context.Background(), `set customData {"plan": "pro plus"}`)
	f.h.exec(context.Background(), `set name Jane Doe`)

	assert.Equal(t, `{"plan": "pro plus"}`, f.h.form.customData)
	assert.Equal(t, "Jane Doe", f.h.form.name)
}

func TestSetUnknownField(t *testing.T) {
	f := newHarnessFixture()

	f.h.exec(context.Background(), "set colour blue")

	last := f.log.recent(1)[0]
	assert.Equal(t, severityWarning, last.severity)
	assert.Equal(t, "Unknown field: colour", last.message)
}

func TestLifecycleCommands(t *testing.T) {
	f := newHarnessFixture()
	ctx := context.Background()

	f.h.exec(ctx, "update")
	assert.Empty(t, f.sdk.updateCalls)

	f.h.exec(ctx, "init")
	f.h.exec(ctx, "update")
	f.h.exec(ctx, "shutdown")

	assert.Len(t, f.sdk.bootCalls, 1)
	assert.Len(t, f.sdk.updateCalls, 1)
	assert.Equal(t, 1, f.sdk.shutdowns)
	assert.Equal(t, stateUninitialized, f.sess.state)
}

func TestUnknownCommand(t *testing.T) {
	f := newHarnessFixture()

	quit := f.h.exec(context.Background(), "launch")

	assert.False(t, quit)
	assert.Equal(t, "Unknown command: launch (try help)", f.log.recent(1)[0].message)
}

func TestRunScriptStopsAtQuit(t *testing.T) {
	f := newHarnessFixture()

	err := f.h.runScript(context.Background(), "init; quit; shutdown")

	require.NoError(t, err)
	assert.Len(t, f.sdk.bootCalls, 1)
	assert.Zero(t, f.sdk.shutdowns)
}

func TestREPL(t *testing.T) {
	f := newHarnessFixture()
	in := strings.NewReader("set appId xyz\n\ninit\nlogs\nexit\ninit\n")

	err := f.h.repl(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://widget.intercom.io/widget/xyz"}, f.loader.calls)
	assert.Contains(t, f.out.String(), "--- Event Log (last 20) ---")
}

func TestREPLStopsOnCancelWhileWaitingForInput(t *testing.T) {
	f := newHarnessFixture()
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- f.h.repl(ctx, in)
	}()

	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("repl did not return after cancel")
	}
}

func TestScanReportsInjectedMarkup(t *testing.T) {
	f := newHarnessFixture()
	f.page.html = `<html><body><div id="widgetScriptContainer"><img src=x onerror=alert("XSS")></div></body></html>`

	findings := f.h.scan(context.Background())

	require.Len(t, findings, 1)
	last := f.log.recent(1)[0]
	assert.Equal(t, severityError, last.severity)
	assert.True(t, strings.HasPrefix(last.message, "Injected markup in page: <img> onerror="))
}

func TestScanCleanPage(t *testing.T) {
	f := newHarnessFixture()

	findings := f.h.scan(context.Background())

	assert.Empty(t, findings)
	assert.Equal(t, "No injected markup found in page", f.log.recent(1)[0].message)
}

func TestScanPageError(t *testing.T) {
	f := newHarnessFixture()
	f.page.htmlErr = errors.New("failed to read page html: closed")

	findings := f.h.scan(context.Background())

	assert.Nil(t, findings)
	assert.Equal(t, severityError, f.log.recent(1)[0].severity)
}

func TestBatchRecordsResults(t *testing.T) {
	f := newHarnessFixture()
	f.h.payloads = []namedPayload{
		{name: "plain", value: "harmless"},
		{name: "dialog", value: "<svg onload=alert(1)>"},
	}

	var dialogs int64
	f.h.dialogs = func() int64 { return dialogs }
	f.page.html = "<html><body></body></html>"

	// the second boot opens a dialog
	boots := 0
	f.h.session.sdk = &dialogSDK{stubSDK: f.sdk, onBoot: func() {
		boots++
		if boots == 2 {
			dialogs++
		}
	}}

	f.h.batch(context.Background())

	require.Len(t, f.h.results, 2)
	assert.Equal(t, reportRow{check: "payload", target: "plain", passed: true, details: "state=initialized findings=0 dialogs=0"}, f.h.results[0])
	assert.Equal(t, "dialog", f.h.results[1].target)
	assert.False(t, f.h.results[1].passed)
	assert.Equal(t, 2, f.page.htmlRead)
}

func TestBatchDefaultsToBuiltins(t *testing.T) {
	f := newHarnessFixture()

	f.h.batch(context.Background())

	assert.Len(t, f.h.results, len(payloadKinds))
	assert.Len(t, f.sdk.bootCalls, len(payloadKinds))
	assert.Len(t, f.loader.scripts, 1)
}

type dialogSDK struct {
	*stubSDK
	onBoot func()
}

func (s *dialogSDK) boot(ctx context.Context, settings map[string]any) error {
	s.onBoot()
	return s.stubSDK.boot(ctx, settings)
}

func TestConsoleCommand(t *testing.T) {
	f := newHarnessFixture()
	f.page.console = []string{"[Error]: widget failed"}

	f.h.exec(context.Background(), "console")
	assert.Equal(t, "Console: [Error]: widget failed", f.log.recent(1)[0].message)

	f.h.exec(context.Background(), "console")
	assert.Equal(t, "No console errors captured", f.log.recent(1)[0].message)
}

func TestStatusCommand(t *testing.T) {
	f := newHarnessFixture()
	f.page.scripts = 1

	f.h.exec(context.Background(), "status")

	assert.Contains(t, f.out.String(), "session: uninitialized")
	assert.Contains(t, f.out.String(), "widget scripts: 1")
}

func TestEndpointsCommandRecordsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newHarnessFixture()
	f.h.endpoints = func(appID string) []string {
		return []string{srv.URL + "/widget/" + appID, "http://127.0.0.1:1/unreachable"}
	}

	f.h.exec(context.Background(), "endpoints")

	require.Len(t, f.h.results, 2)
	assert.True(t, f.h.results[0].passed)
	assert.Equal(t, "status 404", f.h.results[0].details)
	assert.False(t, f.h.results[1].passed)
	assert.Contains(t, f.out.String(), "Endpoint Test Results:")
}
