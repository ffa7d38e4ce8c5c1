package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type endpoint struct {
	host string
}

// newEndpoint takes in a raw URL, parses it and returns an endpoint
// instance
func newEndpoint(rawURL string) (*endpoint, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL must be http or https: %s", rawURL)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("URL missing host: %s", rawURL)
	}

	return &endpoint{host: strings.ToLower(parsed.Host)}, nil
}

// widgetEndpoints lists the endpoints the widget depends on for an app
func widgetEndpoints(widgetURL, apiBase, appID string) []string {
	apiBase = strings.TrimSuffix(apiBase, "/")

	return []string{
		widgetURL + appID,
		apiBase + "/messenger/web/ping",
		apiBase + "/messenger/web/localization",
	}
}

type probeResult struct {
	url       string
	reachable bool
	status    int
	err       error
}

// prober checks whether endpoints answer at all, any HTTP response
// counts as reachable
type prober struct {
	client *http.Client
	log    *eventLog
	out    io.Writer
}

func newProber(log *eventLog, out io.Writer, timeout time.Duration) *prober {
	return &prober{
		client: &http.Client{Timeout: timeout},
		log:    log,
		out:    out,
	}
}

// probe requests every endpoint in turn, printing a results panel and
// logging the outcome of each
func (p *prober) probe(ctx context.Context, urls []string) []probeResult {
	results := make([]probeResult, 0, len(urls))

	fmt.Fprintln(p.out, "Endpoint Test Results:")
	for _, u := range urls {
		res := p.probeOne(ctx, u)
		results = append(results, res)

		if res.reachable {
			fmt.Fprintf(p.out, "  ✅ %s - Reachable\n", u)
			p.log.append(fmt.Sprintf("Endpoint %s is reachable", u), severitySuccess)
		} else {
			fmt.Fprintf(p.out, "  ❌ %s - Unreachable\n", u)
			p.log.append(fmt.Sprintf("Endpoint %s is unreachable", u), severityError)
		}
	}

	return results
}

func (p *prober) probeOne(ctx context.Context, rawURL string) probeResult {
	res := probeResult{url: rawURL}

	_, err := newEndpoint(rawURL)
	if err != nil {
		res.err = err
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.err = fmt.Errorf("failed to build request: %w", err)
		return res
	}

	resp, err := p.client.Do(req)
	if err != nil {
		res.err = fmt.Errorf("failed to send request: %w", err)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.reachable = true
	res.status = resp.StatusCode

	return res
}
