package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects pterm output to a buffer for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	pterm.SetDefaultOutput(&buf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
	return &buf
}

// FakeLoader implements page.Loader for tests.
type FakeLoader struct {
	LoadFunc func(ctx context.Context, target string) (*page.Document, error)
}

func (f *FakeLoader) Load(ctx context.Context, target string) (*page.Document, error) {
	if f.LoadFunc != nil {
		return f.LoadFunc(ctx, target)
	}
	return page.ParseString(target, "")
}

func staticLoader(t *testing.T, rawURL, markup string) *FakeLoader {
	t.Helper()
	return &FakeLoader{LoadFunc: func(ctx context.Context, target string) (*page.Document, error) {
		doc, err := page.ParseString(rawURL, markup)
		require.NoError(t, err)
		return doc, nil
	}}
}

// FakePort implements bridge.Port for tests.
type FakePort struct {
	SendFunc func(ctx context.Context, msg bridge.Message) (json.RawMessage, error)
	Calls    int
}

func (f *FakePort) Send(ctx context.Context, msg bridge.Message) (json.RawMessage, error) {
	f.Calls++
	if f.SendFunc != nil {
		return f.SendFunc(ctx, msg)
	}
	return json.RawMessage(`{"success":false,"error":"not implemented"}`), nil
}
