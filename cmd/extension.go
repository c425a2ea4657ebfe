package cmd

import (
	"context"
	"fmt"

	"github.com/kernel/lecturecap/internal/config"
	"github.com/kernel/lecturecap/internal/extension"
	"github.com/kernel/lecturecap/internal/remote"
	"github.com/kernel/lecturecap/pkg/table"
	"github.com/kernel/lecturecap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ExtensionLoader installs an unpacked extension into a browser.
type ExtensionLoader interface {
	Load(ctx context.Context, browserID, dir string) (*extension.Installed, error)
}

// ExtensionCmd installs and locates the capture extension.
type ExtensionCmd struct {
	loader      ExtensionLoader
	userDataDir func() (string, error)
}

// ExtensionLoadInput holds input for loading an extension into a Kernel browser.
type ExtensionLoadInput struct {
	Dir       string
	BrowserID string
	Output    string
}

// ExtensionLocateInput holds input for finding a locally installed extension.
type ExtensionLocateInput struct {
	Profile string
	ID      string
	Output  string
}

type locatedExtension struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Load uploads the extension and prints the id Chrome assigned to it.
func (e ExtensionCmd) Load(ctx context.Context, in ExtensionLoadInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	if in.BrowserID == "" {
		return fmt.Errorf("--kernel-browser or %s is required", config.EnvKernelBrowserID)
	}

	var spinner *pterm.SpinnerPrinter
	if in.Output != "json" {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Loading extension into browser %s...", in.BrowserID))
	}
	installed, err := e.loader.Load(ctx, in.BrowserID, in.Dir)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(installed)
	}
	pterm.Success.Printf("Loaded %s %s as %s\n", installed.Name, installed.Version, installed.ID)
	pterm.Info.Printf("Set %s=%s to route transcript requests through it\n", config.EnvExtensionID, installed.ID)
	return nil
}

// Locate finds the newest installed copy of an extension in a local Chrome profile.
func (e ExtensionCmd) Locate(ctx context.Context, in ExtensionLocateInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	if in.ID == "" {
		return fmt.Errorf("--id or %s is required", config.EnvExtensionID)
	}

	userDataDir, err := e.userDataDir()
	if err != nil {
		return err
	}
	dir, err := extension.InstalledPath(userDataDir, in.Profile, in.ID)
	if err != nil {
		return err
	}

	out := locatedExtension{ID: in.ID, Path: dir}
	if m, err := extension.ReadManifest(dir); err == nil {
		out.Name, out.Version = m.Name, m.Version
	} else {
		pterm.Debug.Printf("Manifest check failed: %v\n", err)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(out)
	}
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"ID", out.ID})
	rows = append(rows, []string{"Name", util.OrDash(out.Name)})
	rows = append(rows, []string{"Version", util.OrDash(out.Version)})
	rows = append(rows, []string{"Path", out.Path})
	table.PrintTableNoPad(rows, true)
	if out.Name == "" {
		pterm.Warning.Println("Installed copy is not a usable capture extension")
	}
	return nil
}

var extensionCmd = &cobra.Command{
	Use:   "extension",
	Short: "Manage the capture extension",
}

var extensionLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Load an unpacked capture extension into a Kernel browser",
	Long:  "Package an unpacked extension directory, load it into a Kernel browser and print the extension id",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtensionLoad,
}

var extensionLocateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the capture extension in a local Chrome profile",
	Args:  cobra.NoArgs,
	RunE:  runExtensionLocate,
}

func init() {
	extensionCmd.AddCommand(extensionLoadCmd)
	extensionCmd.AddCommand(extensionLocateCmd)

	extensionLoadCmd.Flags().String("kernel-browser", "", "Kernel browser session id")
	extensionLoadCmd.Flags().StringP("output", "o", "", "Output format: json")

	extensionLocateCmd.Flags().String("profile", extension.DefaultProfile, "Chrome profile name")
	extensionLocateCmd.Flags().String("id", "", "Extension id")
	extensionLocateCmd.Flags().StringP("output", "o", "", "Output format: json")
}

func runExtensionLoad(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if cfg.KernelAPIKey == "" {
		return fmt.Errorf("%s is required to load extensions", config.EnvKernelAPIKey)
	}

	browserID, _ := cmd.Flags().GetString("kernel-browser")
	if browserID == "" {
		browserID = cfg.KernelBrowserID
	}
	output, _ := cmd.Flags().GetString("output")

	e := ExtensionCmd{loader: &extension.Loader{
		Browsers:   extension.NewBrowserService(cfg.KernelAPIKey),
		Playwright: remote.NewPlaywrightService(cfg.KernelAPIKey),
		Timeout:    cfg.RequestTimeout,
	}}
	return e.Load(cmd.Context(), ExtensionLoadInput{Dir: args[0], BrowserID: browserID, Output: output})
}

func runExtensionLocate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	profile, _ := cmd.Flags().GetString("profile")
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = cfg.ExtensionID
	}
	output, _ := cmd.Flags().GetString("output")

	e := ExtensionCmd{userDataDir: extension.ChromeUserDataDir}
	return e.Locate(cmd.Context(), ExtensionLocateInput{Profile: profile, ID: id, Output: output})
}
