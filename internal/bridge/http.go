package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pterm/pterm"
	"golang.org/x/oauth2"
)

const (
	// MinBackgroundVersion is the oldest background protocol we can talk to.
	MinBackgroundVersion = "1.2.0"
	// VersionHeader carries the background service version.
	VersionHeader = "X-Background-Version"

	messagesPath    = "/messages"
	maxResponseSize = 32 << 20
)

// ErrIncompatibleBackground is returned when the background reports a
// version older than MinBackgroundVersion.
var ErrIncompatibleBackground = errors.New("incompatible background service")

var minVersion = semver.MustParse(MinBackgroundVersion)

// CheckVersion reports an error unless a background at version v speaks a
// compatible protocol.
func CheckVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", ErrIncompatibleBackground, v)
	}
	if ver.LessThan(minVersion) {
		return fmt.Errorf("%w: version %s is older than %s", ErrIncompatibleBackground, ver, minVersion)
	}
	return nil
}

// HTTPPort posts messages to a background service over HTTP.
type HTTPPort struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPort returns a port for the service at baseURL. A non-empty token is
// sent as a bearer credential.
func NewHTTPPort(ctx context.Context, baseURL, token string) *HTTPPort {
	client := http.DefaultClient
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
	return &HTTPPort{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

func (p *HTTPPort) Send(ctx context.Context, msg Message) (json.RawMessage, error) {
	if p == nil || p.baseURL == "" {
		return nil, ErrRuntimeUnavailable
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+messagesPath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get(VersionHeader); v != "" {
		if err := CheckVersion(v); err != nil {
			return nil, err
		}
	} else {
		pterm.Debug.Println("Background did not report a version")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("background returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.RawMessage(body), nil
}
