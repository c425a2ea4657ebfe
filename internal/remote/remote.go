// Package remote runs Playwright scripts inside a Kernel browser session and
// decodes their results.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
)

// PlaywrightService defines the subset of the Kernel SDK Playwright client that we use.
type PlaywrightService interface {
	Execute(ctx context.Context, id string, body kernel.BrowserPlaywrightExecuteParams, opts ...option.RequestOption) (res *kernel.BrowserPlaywrightExecuteResponse, err error)
}

// ErrNoResult is returned when a script succeeded but produced no value.
var ErrNoResult = errors.New("script returned no result")

// NewPlaywrightService builds the SDK client for the given API key.
func NewPlaywrightService(apiKey string) PlaywrightService {
	client := kernel.NewClient(option.WithAPIKey(apiKey))
	svc := client.Browsers.Playwright
	return &svc
}

// Run executes script in browserID and decodes its return value into out.
func Run(ctx context.Context, svc PlaywrightService, browserID, script string, timeout time.Duration, out any) error {
	if svc == nil {
		return fmt.Errorf("kernel playwright service is not configured")
	}

	timeoutSec := int64(timeout / time.Second)
	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	result, err := svc.Execute(ctx, browserID, kernel.BrowserPlaywrightExecuteParams{
		Code:       script,
		TimeoutSec: kernel.Opt(timeoutSec),
	})
	if err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}

	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("script failed: %s", result.Error)
		}
		return fmt.Errorf("script failed")
	}

	if result.Result == nil {
		return ErrNoResult
	}
	if out == nil {
		return nil
	}

	resultBytes, err := json.Marshal(result.Result)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// JSLiteral renders v as a JavaScript literal for interpolation into a script.
func JSLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
