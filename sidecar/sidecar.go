// Package sidecar gates startup on auxiliary services running alongside the
// agent, such as a redaction proxy the model endpoint routes through.
package sidecar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/legionhq/legion/logging"
)

const (
	probeTimeout  = 2 * time.Second
	probeInterval = 1 * time.Second

	// DefaultWait bounds how long startup blocks on a sidecar.
	DefaultWait = 60 * time.Second
)

// WaitReady polls endpoint's /health until it answers 200 or the wait budget
// runs out. A zero or negative wait disables the gate.
func WaitReady(ctx context.Context, endpoint string, wait time.Duration, logger logging.Logger) error {
	logger = logging.OrNoOp(logger)
	if endpoint == "" || wait <= 0 {
		return nil
	}

	healthURL := strings.TrimRight(endpoint, "/") + "/health"
	client := &http.Client{Timeout: probeTimeout}
	deadline := time.Now().Add(wait)

	logger.Info("waiting for sidecar", "url", healthURL, "wait", wait.String())

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sidecar wait interrupted: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("sidecar probe request: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				logger.Info("sidecar ready", "url", healthURL, "attempts", attempt)
				return nil
			}
			logger.Debug("sidecar not ready", "url", healthURL, "status", resp.StatusCode)
		} else {
			logger.Debug("sidecar not ready", "url", healthURL, "error", err)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("sidecar %s not ready after %s", healthURL, wait)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("sidecar wait interrupted: %w", ctx.Err())
		case <-time.After(probeInterval):
		}
	}
}
