package bridge

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const pluginLoader = `local fcpxmlPlugin = require("cp.plugins")("finalcutpro.watchfolders.fcpxml")`

const autoImportQuery = pluginLoader + `
if fcpxmlPlugin and fcpxmlPlugin.automaticallyImport then
    print(fcpxmlPlugin.automaticallyImport() and "true" or "false")
else
    print("unknown")
end
`

const autoImportUpdate = pluginLoader + `
if fcpxmlPlugin and fcpxmlPlugin.automaticallyImport then
    fcpxmlPlugin.automaticallyImport(%s)
    print("configured")
else
    print("plugin_not_found")
end
`

const watchFolderAdd = pluginLoader + `
if fcpxmlPlugin and fcpxmlPlugin.addWatchFolder then
    fcpxmlPlugin.addWatchFolder(%[1]s)
    print("added")
elseif fcpxmlPlugin then
    local watchFolders = fcpxmlPlugin.watchFolders
    if watchFolders and watchFolders.addFolder then
        watchFolders.addFolder(%[1]s)
        print("added")
    else
        print("method_not_found")
    end
else
    print("plugin_not_found")
end
`

var luaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

func luaString(value string) string {
	return `"` + luaEscaper.Replace(value) + `"`
}

// EnsureWatchFolder creates the watch-folder and registers it with
// CommandPost's FCPXML watch list.
func (c *Client) EnsureWatchFolder(ctx context.Context) error {
	if err := os.MkdirAll(c.watchFolder, 0o755); err != nil {
		return fmt.Errorf("create watch folder: %w", err)
	}
	out, err := c.run(ctx, fmt.Sprintf(watchFolderAdd, luaString(c.watchFolder)))
	if err != nil {
		return err
	}
	switch {
	case strings.Contains(out, "added"):
		return nil
	case strings.Contains(out, "method_not_found"):
		return fmt.Errorf("watch folder API not available; add %s manually in CommandPost preferences", c.watchFolder)
	case strings.Contains(out, "plugin_not_found"):
		return ErrPluginNotFound
	default:
		return fmt.Errorf("unexpected cmdpost response %q", out)
	}
}

// AutoImportEnabled reports whether CommandPost imports watch-folder
// documents automatically.
func (c *Client) AutoImportEnabled(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, autoImportQuery)
	if err != nil {
		return false, err
	}
	switch out {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "unknown":
		return false, ErrPluginNotFound
	default:
		return false, fmt.Errorf("unexpected cmdpost response %q", out)
	}
}

// ConfigureAutoImport turns automatic import on or off.
func (c *Client) ConfigureAutoImport(ctx context.Context, enable bool) error {
	out, err := c.run(ctx, fmt.Sprintf(autoImportUpdate, fmt.Sprint(enable)))
	if err != nil {
		return err
	}
	switch {
	case strings.Contains(out, "configured"):
		return nil
	case strings.Contains(out, "plugin_not_found"):
		return ErrPluginNotFound
	default:
		return fmt.Errorf("unexpected cmdpost response %q", out)
	}
}
