package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kernel/lecturecap/internal/remote"
)

// sendScript opens (or reuses) a page of the extension and relays the message
// through chrome.runtime.sendMessage from there.
const sendScript = `
const base = 'chrome-extension://' + %s + '/';
let ext = context.pages().find(p => p.url().startsWith(base));
if (!ext) {
	ext = await context.newPage();
	await ext.goto(base + %s);
}
return await ext.evaluate((msg) => new Promise((resolve) => {
	if (typeof chrome === 'undefined' || !chrome.runtime || !chrome.runtime.sendMessage) {
		resolve({ unavailable: true });
		return;
	}
	chrome.runtime.sendMessage(msg, (response) => {
		if (chrome.runtime.lastError) {
			resolve({ runtimeError: chrome.runtime.lastError.message || 'unknown runtime error' });
			return;
		}
		resolve({ response: response === undefined ? null : response });
	});
}), %s);
`

type relayResult struct {
	Unavailable  bool            `json:"unavailable"`
	RuntimeError string          `json:"runtimeError"`
	Response     json.RawMessage `json:"response"`
}

// KernelPort delivers messages to an extension installed in a Kernel browser.
type KernelPort struct {
	Playwright  remote.PlaywrightService
	BrowserID   string
	ExtensionID string
	// PagePath is the extension page used as the sending context.
	PagePath string
	Timeout  time.Duration
}

func (p *KernelPort) Send(ctx context.Context, msg Message) (json.RawMessage, error) {
	if p == nil || p.Playwright == nil || p.ExtensionID == "" {
		return nil, ErrRuntimeUnavailable
	}

	pagePath := p.PagePath
	if pagePath == "" {
		pagePath = "popup.html"
	}
	script := fmt.Sprintf(sendScript, remote.JSLiteral(p.ExtensionID), remote.JSLiteral(pagePath), remote.JSLiteral(msg))

	var out relayResult
	if err := remote.Run(ctx, p.Playwright, p.BrowserID, script, p.Timeout, &out); err != nil {
		return nil, err
	}
	if out.Unavailable {
		return nil, ErrRuntimeUnavailable
	}
	if out.RuntimeError != "" {
		return nil, fmt.Errorf("runtime error: %s", out.RuntimeError)
	}
	return out.Response, nil
}
