package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kernel/lecturecap/internal/page"
	"github.com/kernel/lecturecap/internal/transcripts"
	"github.com/kernel/lecturecap/internal/video"
	"github.com/kernel/lecturecap/pkg/table"
	"github.com/kernel/lecturecap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// DetectCmd scans pages for lecture videos.
type DetectCmd struct {
	loader  page.Loader
	session *transcripts.Session
}

// DetectInput holds input for scanning one page.
type DetectInput struct {
	Target string
	Output string
}

// DetectDirInput holds input for scanning a directory of saved pages.
type DetectDirInput struct {
	Dir    string
	Output string
}

// detectOutput is the JSON shape of a scan.
type detectOutput struct {
	Target      string             `json:"target"`
	Videos      []video.Descriptor `json:"videos"`
	EchoContext *video.EchoContext `json:"echoContext,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// scan loads target and runs detection, waiting for any Echo360 section
// list to arrive.
func (d DetectCmd) scan(ctx context.Context, target string) (transcripts.State, error) {
	doc, err := d.loader.Load(ctx, target)
	if err != nil {
		return transcripts.State{}, fmt.Errorf("failed to load page: %w", err)
	}
	d.session.DetectVideos(ctx, doc)
	d.session.Wait()
	return d.session.Snapshot(), nil
}

// Detect lists the videos found on a single page.
func (d DetectCmd) Detect(ctx context.Context, in DetectInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	if in.Output != "json" {
		pterm.Info.Printf("Scanning %s...\n", in.Target)
	}

	st, err := d.scan(ctx, in.Target)
	if err != nil {
		return err
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(detectOutput{
			Target:      in.Target,
			Videos:      nonNil(st.Videos),
			EchoContext: st.EchoContext,
			Error:       st.Error,
		})
	}

	if len(st.Videos) == 0 {
		pterm.Warning.Println(util.OrDash(st.Error))
		return nil
	}

	printVideos(st.Videos)
	if st.EchoContext != nil {
		pterm.Info.Printf("Echo360 tenant: %s\n", st.EchoContext.EchoOrigin)
	}
	if st.Error != "" {
		pterm.Warning.Println(st.Error)
	}
	return nil
}

// DetectDir scans every saved page under a directory.
func (d DetectCmd) DetectDir(ctx context.Context, in DetectDirInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	files, err := util.FindHTMLFiles(in.Dir)
	if err != nil {
		return fmt.Errorf("failed to list pages in %s: %w", in.Dir, err)
	}

	results := make([]detectOutput, 0, len(files))
	for _, f := range files {
		st, err := d.scan(ctx, f)
		if err != nil {
			pterm.Debug.Printf("Skipping %s: %v\n", f, err)
			results = append(results, detectOutput{Target: f, Videos: []video.Descriptor{}, Error: err.Error()})
			continue
		}
		results = append(results, detectOutput{Target: f, Videos: nonNil(st.Videos), EchoContext: st.EchoContext, Error: st.Error})
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(results)
	}

	if len(files) == 0 {
		pterm.Warning.Printf("No HTML files found in %s\n", in.Dir)
		return nil
	}

	rows := pterm.TableData{{"File", "#", "Provider", "ID", "Title"}}
	total := 0
	for _, r := range results {
		rel, err := filepath.Rel(in.Dir, r.Target)
		if err != nil {
			rel = r.Target
		}
		if len(r.Videos) == 0 {
			rows = append(rows, []string{rel, "-", "-", "-", util.OrDash(r.Error)})
			continue
		}
		for i, v := range r.Videos {
			rows = append(rows, []string{rel, fmt.Sprint(i + 1), string(v.Provider), v.Key(), util.Truncate(v.Title, 60)})
		}
		total += len(r.Videos)
	}
	table.PrintTableNoPad(rows, true)
	pterm.Success.Printf("Found %d video(s) in %d file(s)\n", total, len(files))
	return nil
}

func printVideos(videos []video.Descriptor) {
	rows := pterm.TableData{{"#", "Provider", "ID", "Title"}}
	for i, v := range videos {
		rows = append(rows, []string{fmt.Sprint(i + 1), string(v.Provider), v.Key(), util.Truncate(v.Title, 80)})
	}
	table.PrintTableNoPad(rows, true)
}

func nonNil(videos []video.Descriptor) []video.Descriptor {
	if videos == nil {
		return []video.Descriptor{}
	}
	return videos
}

var detectCmd = &cobra.Command{
	Use:   "detect [url-or-file]",
	Short: "List lecture videos on a page",
	Long: "Scan a course page (URL or saved HTML file) for Panopto and Echo360 players. " +
		"Use --dir to scan a directory of saved pages.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	addPageFlags(detectCmd.Flags())
	detectCmd.Flags().String("dir", "", "Scan every saved HTML page in this directory")
	detectCmd.Flags().StringP("output", "o", "", "Output format: json")
}

func runDetect(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	dir, _ := cmd.Flags().GetString("dir")

	if dir == "" && len(args) == 0 {
		return fmt.Errorf("provide a URL or file, or use --dir")
	}
	if dir != "" && len(args) > 0 {
		return fmt.Errorf("--dir cannot be combined with a URL or file")
	}

	target := dir
	if len(args) > 0 {
		target = args[0]
	}
	loader, session, opts, err := pageDeps(cmd, target)
	if err != nil {
		return err
	}

	d := DetectCmd{loader: loader, session: session}
	if dir != "" {
		// Saved pages are always read from disk, even with a Kernel browser configured.
		d.loader = &page.FileLoader{BaseURL: opts.BaseURL, MaxDepth: opts.MaxDepth}
		return d.DetectDir(cmd.Context(), DetectDirInput{Dir: dir, Output: output})
	}
	return d.Detect(cmd.Context(), DetectInput{Target: target, Output: output})
}
