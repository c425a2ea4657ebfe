package page

import (
	"context"
	"fmt"
	"time"

	"github.com/kernel/lecturecap/internal/remote"
	"github.com/pterm/pterm"
)

// renderScript navigates the first tab of the browser to the target and dumps
// every frame. parent and index locate each child frame's <iframe> element
// inside its parent document.
const renderScript = `
const target = %s;
const page = context.pages()[0] ?? await context.newPage();
await page.goto(target, { waitUntil: 'networkidle', timeout: %d });
const frames = page.frames();
const out = [];
for (const f of frames) {
	let html = '';
	try { html = await f.content(); } catch (e) { html = ''; }
	let index = -1;
	const parent = f.parentFrame();
	if (parent) {
		try {
			const el = await f.frameElement();
			index = await el.evaluate(e => Array.from(e.ownerDocument.querySelectorAll('iframe')).indexOf(e));
		} catch (e) { index = -1; }
	}
	out.push({ url: f.url(), html, parent: parent ? frames.indexOf(parent) : -1, index });
}
return { frames: out };
`

type renderedFrame struct {
	URL    string `json:"url"`
	HTML   string `json:"html"`
	Parent int    `json:"parent"`
	Index  int    `json:"index"`
}

// KernelLoader renders pages in a remote Kernel browser so script-built
// players are present in the DOM. Only same-origin frames are attached.
type KernelLoader struct {
	Playwright remote.PlaywrightService
	BrowserID  string
	MaxDepth   int
	Timeout    time.Duration
}

func (l *KernelLoader) Load(ctx context.Context, target string) (*Document, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	script := fmt.Sprintf(renderScript, remote.JSLiteral(target), timeout.Milliseconds())

	var rendered struct {
		Frames []renderedFrame `json:"frames"`
	}
	if err := remote.Run(ctx, l.Playwright, l.BrowserID, script, timeout+10*time.Second, &rendered); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", target, err)
	}
	if len(rendered.Frames) == 0 {
		return nil, fmt.Errorf("failed to render %s: no frames returned", target)
	}

	return assembleFrames(rendered.Frames, l.MaxDepth)
}

// assembleFrames parses each rendered frame and attaches same-origin children
// to the iframe element they were loaded into. Frame 0 is the main frame.
func assembleFrames(frames []renderedFrame, maxDepth int) (*Document, error) {
	docs := make([]*Document, len(frames))
	for i, f := range frames {
		docURL := f.URL
		if !isHTTP(docURL) && f.Parent >= 0 && f.Parent < len(frames) {
			// about:srcdoc and about:blank frames share the parent's location
			docURL = frames[f.Parent].URL
		}
		doc, err := ParseString(docURL, f.HTML)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			pterm.Debug.Printf("Skipping unparseable frame %s: %v\n", f.URL, err)
			continue
		}
		docs[i] = doc
	}

	for i, f := range frames {
		if i == 0 || docs[i] == nil || f.Index < 0 || f.Parent < 0 || f.Parent >= len(frames) || docs[f.Parent] == nil {
			continue
		}
		if frameDepth(frames, i) > maxDepth {
			continue
		}
		parent := docs[f.Parent]
		if !SameOrigin(parent.URL(), f.URL) {
			pterm.Debug.Printf("Skipping cross-origin frame %s\n", f.URL)
			continue
		}
		iframe := parent.Find("iframe").Eq(f.Index)
		if iframe.Length() == 0 {
			continue
		}
		if err := parent.AttachFrame(iframe, docs[i]); err != nil {
			pterm.Debug.Printf("Could not attach frame %s: %v\n", f.URL, err)
		}
	}

	return docs[0], nil
}

// frameDepth counts how many parents separate frame i from the main frame.
func frameDepth(frames []renderedFrame, i int) int {
	depth := 0
	for p := frames[i].Parent; p >= 0 && p < len(frames) && depth <= len(frames); p = frames[p].Parent {
		depth++
	}
	return depth
}
