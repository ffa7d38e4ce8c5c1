package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateInitialized
)

func (s sessionState) String() string {
	if s == stateInitialized {
		return "initialized"
	}

	return "uninitialized"
}

// scriptLoader installs the widget bootstrap script into the page,
// replacing any script previously installed from the same origin
type scriptLoader interface {
	load(ctx context.Context, url string) error
}

// widgetSDK is the callable surface of the widget's page global
type widgetSDK interface {
	available(ctx context.Context) (bool, error)
	boot(ctx context.Context, settings map[string]any) error
	update(ctx context.Context, data map[string]any) error
	shutdown(ctx context.Context) error
}

// widgetConfig holds the identity fields an initialize call is built from
type widgetConfig struct {
	appID      string
	userID     string
	email      string
	name       string
	customData string // raw JSON object spread over the named fields
}

// mergeMode decides which side wins when custom data repeats a named field
type mergeMode int

const (
	// mergeCustomWins lets custom data overwrite named fields
	mergeCustomWins mergeMode = iota
	// mergeIdentityWins keeps named fields over custom data
	mergeIdentityWins
)

type sessionOptions struct {
	widgetURL string // prefix the app id is appended to
	apiBase   string
	settle    time.Duration
	merge     mergeMode
}

// session sequences the widget lifecycle against the injected loader and
// sdk, every outcome is reported through the event log
type session struct {
	state  sessionState
	log    *eventLog
	loader scriptLoader
	sdk    widgetSDK
	opts   sessionOptions
	sleep  func(ctx context.Context, d time.Duration) error
}

func newSession(log *eventLog, loader scriptLoader, sdk widgetSDK, opts sessionOptions) *session {
	return &session{
		log:    log,
		loader: loader,
		sdk:    sdk,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// initialize loads the widget script for the configured app, waits for it
// to settle and boots the widget
func (s *session) initialize(ctx context.Context, cfg widgetConfig) {
	extra, err := parseCustomData(cfg.customData)
	if err != nil {
		s.report(err)
		return
	}

	err = s.loader.load(ctx, s.opts.widgetURL+cfg.appID)
	if err != nil {
		s.report(fmt.Errorf("Failed to load Intercom script: %w", err))
		return
	}
	s.log.append(fmt.Sprintf("Intercom script loaded for app: %s", cfg.appID), severitySuccess)

	// the sdk global isn't callable straight after the script executes
	err = s.sleep(ctx, s.opts.settle)
	if err != nil {
		s.report(fmt.Errorf("Failed to initialize Intercom: %w", err))
		return
	}

	settings := s.bootSettings(cfg, extra)

	err = s.sdk.boot(ctx, settings)
	if err != nil {
		s.report(fmt.Errorf("Failed to initialize Intercom: %w", err))
		return
	}

	s.state = stateInitialized
	s.log.append("Intercom initialized successfully", severitySuccess)
}

// update pushes custom data to a booted widget
func (s *session) update(ctx context.Context, customData string) {
	if s.state != stateInitialized {
		s.report(fmt.Errorf("Intercom not initialized. Please initialize first: %w", errGuardViolation))
		return
	}

	data, err := parseCustomData(customData)
	if err != nil {
		s.report(err)
		return
	}

	err = s.sdk.update(ctx, data)
	if err != nil {
		s.report(fmt.Errorf("Failed to update Intercom: %w", err))
		return
	}

	s.log.append("Intercom updated with new data", severitySuccess)
}

// shutdown ends the widget session whatever state it was in, as long as
// the sdk global exists
func (s *session) shutdown(ctx context.Context) {
	ok, err := s.sdk.available(ctx)
	if err != nil {
		s.report(fmt.Errorf("Failed to shut down Intercom: %w", err))
		return
	}
	if !ok {
		s.report(fmt.Errorf("Intercom not found: %w", errGuardViolation))
		return
	}

	err = s.sdk.shutdown(ctx)
	if err != nil {
		s.report(fmt.Errorf("Failed to shut down Intercom: %w", err))
		return
	}

	s.state = stateUninitialized
	s.log.append("Intercom shutdown", severitySuccess)
}

// bootSettings merges the named identity fields with the custom data.
// Collisions are always flagged in the log, whichever side wins.
func (s *session) bootSettings(cfg widgetConfig, extra map[string]any) map[string]any {
	named := map[string]any{
		"api_base": s.opts.apiBase,
		"app_id":   cfg.appID,
		"user_id":  cfg.userID,
		"email":    cfg.email,
		"name":     cfg.name,
	}

	settings := make(map[string]any, len(named)+len(extra))
	for k, v := range named {
		settings[k] = v
	}

	var collisions []string
	for k, v := range extra {
		if _, ok := named[k]; ok {
			collisions = append(collisions, k)
			if s.opts.merge == mergeIdentityWins {
				continue
			}
		}
		settings[k] = v
	}

	if len(collisions) > 0 {
		sort.Strings(collisions)
		winner := "custom data overrides"
		if s.opts.merge == mergeIdentityWins {
			winner = "custom data ignored for"
		}
		s.log.append(fmt.Sprintf("%s named fields: %s", winner, strings.Join(collisions, ", ")), severityWarning)
	}

	return settings
}

// report logs an operation failure with the severity of its kind
func (s *session) report(err error) {
	s.log.append(errorMessage(err), severityFor(err))
}

// parseCustomData parses the raw custom data, which must be a JSON object
// or null
func parseCustomData(raw string) (map[string]any, error) {
	var value any

	err := json.Unmarshal([]byte(raw), &value)
	if err != nil {
		return nil, fmt.Errorf("Invalid JSON in custom data: %w", errInvalidInput)
	}

	switch data := value.(type) {
	case nil:
		// null adds no fields
		return map[string]any{}, nil
	case map[string]any:
		return data, nil
	default:
		return nil, fmt.Errorf("Custom data must be a JSON object: %w", errInvalidInput)
	}
}

// errorMessage strips the kind sentinel from an error's message,
// the kind is carried by the entry's severity instead
func errorMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{errInvalidInput, errLoadFailure, errSDKInvocation, errGuardViolation} {
		msg = strings.TrimSuffix(msg, ": "+kind.Error())
	}

	return msg
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
