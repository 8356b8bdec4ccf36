package bridge

import (
	"context"
	"os"
)

// Status summarizes the CommandPost installation as seen from this host.
type Status struct {
	MacOS                 bool     `json:"macos"`
	AppInstalled          bool     `json:"app_installed"`
	CLIAvailable          bool     `json:"cli_available"`
	CLIPath               string   `json:"cli_path,omitempty"`
	WatchFolderConfigured bool     `json:"watch_folder_configured"`
	WatchFolder           string   `json:"watch_folder,omitempty"`
	AutoImportEnabled     bool     `json:"auto_import_enabled"`
	Errors                []string `json:"errors,omitempty"`
}

// Ready reports whether documents dropped into the watch-folder will be
// imported without manual steps.
func (s Status) Ready() bool {
	return s.MacOS && s.AppInstalled && s.CLIAvailable && s.WatchFolderConfigured && s.AutoImportEnabled
}

// Status probes the host, the CommandPost install, and the auto-import setting.
func (c *Client) Status(ctx context.Context) Status {
	if !c.macOS() {
		return Status{Errors: []string{"CommandPost is only available on macOS"}}
	}

	status := Status{
		MacOS:        true,
		AppInstalled: c.appInstalled(),
		CLIAvailable: c.binary != "",
		CLIPath:      c.binary,
	}
	if !status.AppInstalled {
		status.Errors = append(status.Errors, "CommandPost is not installed; download it from https://commandpost.io")
	}
	if !status.CLIAvailable {
		status.Errors = append(status.Errors, "cmdpost CLI not found; ensure CommandPost is installed and running")
	}
	if info, err := os.Stat(c.watchFolder); err == nil && info.IsDir() {
		status.WatchFolderConfigured = true
		status.WatchFolder = c.watchFolder
	}
	if status.CLIAvailable && status.WatchFolderConfigured {
		enabled, err := c.AutoImportEnabled(ctx)
		if err != nil {
			status.Errors = append(status.Errors, "auto-import check failed: "+err.Error())
		}
		status.AutoImportEnabled = enabled
	}
	return status
}

// Step is the outcome of one bootstrap action.
type Step struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func stepFromErr(err error, success string) Step {
	if err != nil {
		return Step{Message: err.Error()}
	}
	return Step{OK: true, Message: success}
}

// Bootstrap performs the one-time setup: create the watch-folder, enable
// auto-import, and register the folder. Every step runs and reports its own
// result.
func (c *Client) Bootstrap(ctx context.Context) []Step {
	steps := make([]Step, 0, 3)
	if err := os.MkdirAll(c.watchFolder, 0o755); err != nil {
		steps = append(steps, Step{Message: "failed to create watch folder: " + err.Error()})
	} else {
		steps = append(steps, Step{OK: true, Message: "watch folder created: " + c.watchFolder})
	}

	if err := c.available(); err != nil {
		return append(steps, Step{Message: err.Error() + "; skipping configuration"})
	}
	steps = append(steps, stepFromErr(c.ConfigureAutoImport(ctx, true), "auto-import enabled"))
	steps = append(steps, stepFromErr(c.EnsureWatchFolder(ctx), "watch folder added: "+c.watchFolder))
	return steps
}
