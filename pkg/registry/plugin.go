package registry

import (
	"io/fs"
	"log/slog"
	"os"
	"plugin"

	"github.com/siteforge/relay/pkg/protocol"
)

// LoadActionPlugins loads .so files from pluginsPath and registers every
// exported "Action" factory symbol. Out-of-tree actions registered here ride
// the same unknown-action failure path as everything else when absent.
func (r *Registry) LoadActionPlugins(pluginsPath string) error {
	root := os.DirFS(pluginsPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return err
	}

	logger := r.logger.With(slog.String("path", pluginsPath))
	logger.Info("Loading action plugins", "count", len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(pluginsPath + "/" + p)
		if err != nil {
			return err
		}

		symbol, err := plg.Lookup("Action")
		if err != nil {
			return err
		}

		factory, ok := symbol.(protocol.ActionFactory)
		if !ok {
			logger.Warn("Plugin does not export an action factory, skipping", "plugin", p)

			continue
		}

		r.RegisterAction(factory)
		logger.Info("Loaded action plugin", slog.String("plugin", p))
	}

	return nil
}
