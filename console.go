package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// pageInspector reads state back out of the harness page
type pageInspector interface {
	documentHTML(ctx context.Context) (string, error)
	consoleMessages(ctx context.Context) ([]string, error)
	scriptCount(ctx context.Context) (int, error)
}

// harness holds the form fields an operator edits and dispatches console
// commands to the session, payload tester and prober
type harness struct {
	session   *session
	log       *eventLog
	page      pageInspector
	prober    *prober
	form      widgetConfig
	payload   string
	payloads  []namedPayload // batch list, built-ins when empty
	dialogs   func() int64   // dialogs opened so far, may be nil
	endpoints func(appID string) []string
	results   []reportRow
	out       io.Writer
}

const helpText = `Commands:
  set <field> <value>  set appId, userId, email, name, customData or payload
  show                 print the current form fields
  init                 load and boot the widget
  update               push customData to the booted widget
  shutdown             shut the widget down
  xss [kind]           load a built-in payload (basic, img, svg, script, json)
  payload              inject the payload through the user name and re-initialize
  batch                run every payload from the payload list
  scan                 look for injected markup in the page
  console              pull captured page console errors into the log
  endpoints            probe the widget endpoints
  status               print session state and installed widget scripts
  logs                 print the last 20 log entries
  quit                 exit`

// repl reads commands from in until quit, EOF or ctx is done
func (h *harness) repl(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	done := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	// reads block, so scan in the background to stay responsive to ctx
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		done <- scanner.Err()
	}()

	fmt.Fprint(h.out, "> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(h.out)
			return ctx.Err()
		case err := <-done:
			return err
		case line := <-lines:
			if h.exec(ctx, line) {
				return nil
			}
			fmt.Fprint(h.out, "> ")
		}
	}
}

// runScript executes a semicolon separated list of commands
func (h *harness) runScript(ctx context.Context, script string) error {
	for _, line := range strings.Split(script, ";") {
		if h.exec(ctx, line) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// exec runs one command line and reports whether the console should exit
func (h *harness) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "help":
		fmt.Fprintln(h.out, helpText)
	case "set":
		h.set(args)
	case "show":
		h.show()
	case "init":
		h.session.initialize(ctx, h.form)
	case "update":
		h.session.update(ctx, h.form.customData)
	case "shutdown":
		h.session.shutdown(ctx)
	case "xss":
		h.testXSS(args)
	case "payload":
		h.testCustomPayload(ctx)
	case "batch":
		h.batch(ctx)
	case "scan":
		h.scan(ctx)
	case "console":
		h.drainConsole(ctx)
	case "endpoints":
		h.testEndpoints(ctx)
	case "status":
		h.status(ctx)
	case "logs":
		printPanel(h.out, h.log.recent(displayedEntries))
	case "quit", "exit":
		return true
	default:
		h.log.append(fmt.Sprintf("Unknown command: %s (try help)", cmd), severityWarning)
	}

	return false
}

// set updates one of the form fields
func (h *harness) set(args string) {
	field, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)

	switch strings.ToLower(field) {
	case "appid":
		h.form.appID = value
	case "userid":
		h.form.userID = value
	case "email":
		h.form.email = value
	case "name":
		h.form.name = value
	case "customdata":
		h.form.customData = value
	case "payload":
		h.payload = value
	default:
		h.log.append(fmt.Sprintf("Unknown field: %s", field), severityWarning)
		return
	}

	h.log.append(fmt.Sprintf("Set %s to %s", field, value), severityInfo)
}

func (h *harness) show() {
	fmt.Fprintf(h.out, "appId:      %s\n", h.form.appID)
	fmt.Fprintf(h.out, "userId:     %s\n", h.form.userID)
	fmt.Fprintf(h.out, "email:      %s\n", h.form.email)
	fmt.Fprintf(h.out, "name:       %s\n", h.form.name)
	fmt.Fprintf(h.out, "customData: %s\n", h.form.customData)
	fmt.Fprintf(h.out, "payload:    %s\n", h.payload)
}

// testXSS loads a built-in payload into the payload field
func (h *harness) testXSS(name string) {
	kind := parsePayloadKind(name)
	h.payload = kind.payload()

	// the requested name is logged even when it fell back to basic
	if name == "" {
		name = kind.String()
	}
	h.log.append(fmt.Sprintf("Loaded %s XSS payload: %s", name, h.payload), severityWarning)
}

// testCustomPayload injects the payload through the user name and
// re-initializes the widget with it
func (h *harness) testCustomPayload(ctx context.Context) {
	h.form.name = h.payload
	h.log.append(fmt.Sprintf("Testing payload in user name: %s", h.payload), severityWarning)

	h.session.initialize(ctx, h.form)
}

// batch runs every payload in the list and records whether any of them
// produced executable markup or opened a dialog
func (h *harness) batch(ctx context.Context) {
	payloads := h.payloads
	if len(payloads) == 0 {
		payloads = builtinPayloads()
	}

	for _, p := range payloads {
		if ctx.Err() != nil {
			return
		}

		before := h.dialogCount()
		h.payload = p.value
		h.testCustomPayload(ctx)

		findings := h.scan(ctx)
		opened := h.dialogCount() - before

		details := fmt.Sprintf("state=%s findings=%d dialogs=%d", h.session.state, len(findings), opened)
		h.results = append(h.results, reportRow{
			check:   "payload",
			target:  p.name,
			passed:  len(findings) == 0 && opened == 0,
			details: details,
		})
	}
}

// scan looks for executable markup in the harness page
func (h *harness) scan(ctx context.Context) []string {
	html, err := h.page.documentHTML(ctx)
	if err != nil {
		h.log.append(err.Error(), severityError)
		return nil
	}

	findings, err := findInjectedMarkup(html)
	if err != nil {
		h.log.append(err.Error(), severityError)
		return nil
	}

	if len(findings) == 0 {
		h.log.append("No injected markup found in page", severitySuccess)
		return findings
	}

	for _, f := range findings {
		h.log.append("Injected markup in page: "+f, severityError)
	}

	return findings
}

func (h *harness) drainConsole(ctx context.Context) {
	messages, err := h.page.consoleMessages(ctx)
	if err != nil {
		h.log.append(err.Error(), severityError)
		return
	}

	if len(messages) == 0 {
		h.log.append("No console errors captured", severityInfo)
		return
	}

	for _, m := range messages {
		h.log.append("Console: "+m, severityWarning)
	}
}

func (h *harness) testEndpoints(ctx context.Context) {
	for _, res := range h.prober.probe(ctx, h.endpoints(h.form.appID)) {
		details := fmt.Sprintf("status %d", res.status)
		if res.err != nil {
			details = res.err.Error()
		}

		h.results = append(h.results, reportRow{
			check:   "endpoint",
			target:  res.url,
			passed:  res.reachable,
			details: details,
		})
	}
}

func (h *harness) status(ctx context.Context) {
	fmt.Fprintf(h.out, "session: %s\n", h.session.state)

	count, err := h.page.scriptCount(ctx)
	if err != nil {
		h.log.append(err.Error(), severityError)
		return
	}
	fmt.Fprintf(h.out, "widget scripts: %d\n", count)
}

func (h *harness) dialogCount() int64 {
	if h.dialogs == nil {
		return 0
	}

	return h.dialogs()
}
