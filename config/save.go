package config

import (
	"context"
	"path/filepath"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"gopkg.in/yaml.v3"
)

// Sink receives the configuration whenever the cache changes it at runtime.
type Sink func(ctx context.Context, cfg Config) error

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(fs core.WriteFS, path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "failed to encode config")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithContext(err, errors.CodeInternal, "failed to create config directory",
				map[string]interface{}{"path": dir})
		}
	}

	if err := fs.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithContext(err, errors.CodeInternal, "failed to write config file",
			map[string]interface{}{"path": path})
	}
	return nil
}

// FileSink returns a Sink that saves every update to path.
func FileSink(fs core.WriteFS, path string) Sink {
	return func(_ context.Context, cfg Config) error {
		return Save(fs, path, cfg)
	}
}
