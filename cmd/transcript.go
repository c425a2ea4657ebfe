package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/patterns"
	"github.com/kernel/lecturecap/internal/transcripts"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/kernel/lecturecap/pkg/util"
	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var transcriptFormats = []string{"text", "srt", "json"}

var guidanceStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("214")).
	Padding(0, 1)

// TranscriptCmd extracts the transcript of a video found on a page.
type TranscriptCmd struct {
	loader   page.Loader
	session  *transcripts.Session
	maxDepth int
	openURL  func(string) error
}

// TranscriptInput holds input for extracting a transcript.
type TranscriptInput struct {
	Target string
	// Video is a video id or a 1-based index into the detected list.
	Video      string
	Format     string
	OutputFile string
	Open       bool
}

// Extract detects videos on the page, picks one and prints its transcript.
func (c TranscriptCmd) Extract(ctx context.Context, in TranscriptInput) error {
	format := strings.ToLower(in.Format)
	if format == "" {
		format = "text"
	}
	if !lo.Contains(transcriptFormats, format) {
		return fmt.Errorf("unsupported --format value: use one of %s", strings.Join(transcriptFormats, ", "))
	}

	doc, err := c.loader.Load(ctx, in.Target)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	res := c.session.DetectVideos(ctx, doc)
	if res.EchoContext != nil && res.EchoContext.SectionID != "" && format != "json" {
		spinner, _ := pterm.DefaultSpinner.Start("Loading Echo360 video list...")
		c.session.Wait()
		_ = spinner.Stop()
	}
	c.session.Wait()

	st := c.session.Snapshot()
	if len(st.Videos) == 0 {
		return errors.New(util.OrDash(st.Error))
	}

	v, err := selectVideo(st.Videos, in.Video)
	if err != nil {
		printVideos(st.Videos)
		return err
	}
	if _, pending := v.ID.(video.SectionPending); pending && st.Error != "" {
		return fmt.Errorf("failed to load echo360 video list: %s", st.Error)
	}

	if lti, ok := v.ID.(video.Unresolvable); ok {
		frameURL := ltiFrameURL(doc, lti.Origin, c.maxDepth)
		pterm.Println(guidanceStyle.Render(fmt.Sprintf(
			"Echo360 player is inside a cross-origin LTI frame.\n"+
				"Open the frame in its own tab, then run this command on that URL:\n\n  %s", frameURL)))
		if in.Open && c.openURL != nil {
			if err := c.openURL(frameURL); err != nil {
				pterm.Warning.Printf("Could not open browser automatically: %v\n", err)
			} else {
				pterm.Info.Println("(Opened in browser)")
			}
		}
	}

	var spinner *pterm.SpinnerPrinter
	if format != "json" {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Extracting transcript for %s...", util.Truncate(v.Title, 60)))
	}
	tr, err := c.session.ExtractTranscript(ctx, v)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	rendered, err := renderTranscript(format, v, tr)
	if err != nil {
		return err
	}

	if in.OutputFile != "" {
		if err := os.WriteFile(in.OutputFile, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", in.OutputFile, err)
		}
		pterm.Success.Printf("Saved transcript (%s, %d segments) to %s\n", util.FormatDuration(tr.Duration()), len(tr.Segments), in.OutputFile)
		return nil
	}

	pterm.Println(rendered)
	return nil
}

// selectVideo resolves sel against the detected list. An empty selector is
// only accepted when there is exactly one video.
func selectVideo(videos []video.Descriptor, sel string) (video.Descriptor, error) {
	if sel == "" {
		if len(videos) == 1 {
			return videos[0], nil
		}
		return video.Descriptor{}, fmt.Errorf("found %d videos: pass a video id or index", len(videos))
	}

	for _, v := range videos {
		if v.Key() == sel {
			return v, nil
		}
	}
	if n, err := strconv.Atoi(sel); err == nil {
		if n < 1 || n > len(videos) {
			return video.Descriptor{}, fmt.Errorf("video index %d out of range (1-%d)", n, len(videos))
		}
		return videos[n-1], nil
	}
	return video.Descriptor{}, fmt.Errorf("no video with id %q on this page", sel)
}

// ltiFrameURL returns the src of the first iframe served from origin, or the
// origin itself.
func ltiFrameURL(doc *page.Document, origin string, maxDepth int) string {
	for _, f := range page.CollectIframes(doc, 0, maxDepth) {
		if o, ok := patterns.ExtractEchoOrigin(f.Src()); ok && o == origin {
			return f.Src()
		}
	}
	return origin
}

func renderTranscript(format string, v video.Descriptor, tr *video.TranscriptResult) (string, error) {
	switch format {
	case "srt":
		return tr.SRT(), nil
	case "json":
		b, err := json.MarshalIndent(struct {
			Video      video.Descriptor        `json:"video"`
			Transcript *video.TranscriptResult `json:"transcript"`
		}{v, tr}, "", "  ")
		return string(b), err
	default:
		if tr.PlainText != "" {
			return tr.PlainText, nil
		}
		lines := make([]string, len(tr.Segments))
		for i, seg := range tr.Segments {
			lines[i] = seg.Text
		}
		return strings.Join(lines, "\n"), nil
	}
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <url-or-file> [video-id-or-index]",
	Short: "Extract a video transcript",
	Long: "Detect videos on a page and extract the transcript of one of them through the background service. " +
		"When the page has several videos, pass the id or list index shown by 'lecturecap detect'.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runTranscript,
}

func init() {
	addPageFlags(transcriptCmd.Flags())
	transcriptCmd.Flags().StringP("format", "f", "text", "Transcript format: text, srt or json")
	transcriptCmd.Flags().String("out", "", "Write the transcript to this file instead of stdout")
	transcriptCmd.Flags().Bool("open", false, "Open cross-origin Echo360 frames in the local browser")
}

func runTranscript(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	open, _ := cmd.Flags().GetBool("open")

	loader, session, opts, err := pageDeps(cmd, args[0])
	if err != nil {
		return err
	}

	in := TranscriptInput{Target: args[0], Format: format, OutputFile: out, Open: open}
	if len(args) > 1 {
		in.Video = args[1]
	}

	c := TranscriptCmd{loader: loader, session: session, maxDepth: opts.MaxDepth, openURL: browser.OpenURL}
	return c.Extract(cmd.Context(), in)
}
