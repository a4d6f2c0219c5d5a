package config

import (
	"context"
	_ "embed"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource []byte

// Format identifies the encoding of a configuration file.
type Format string

// Supported formats.
const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.WithContext(
			errors.New(errors.CodeInvalidConfig, "unsupported config file extension"),
			"path", path,
		)
	}
}

// Loader reads configuration files from a filesystem and checks them
// against the embedded schema.
type Loader struct {
	fs     core.ReadFS
	cueCtx *cue.Context
	schema cue.Value
}

// NewLoader creates a loader reading from fs.
// Returns CodeCUEBuildFailed if the embedded schema does not compile.
func NewLoader(fs core.ReadFS) (*Loader, error) {
	cueCtx := cuecontext.New()

	root := cueCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCUEBuildFailed, "failed to compile config schema")
	}

	schema := root.LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCUEBuildFailed, "config schema has no #Config definition")
	}

	return &Loader{fs: fs, cueCtx: cueCtx, schema: schema}, nil
}

// Load reads the file at path, inferring its format from the extension.
//
// Returns CodeCUELoadFailed if the file cannot be read, CodeInvalidConfig
// for unsupported extensions or values rejected by Validate, and the
// CUE build, validation or decode codes for schema problems.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeCUELoadFailed, "context cancelled")
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeCUELoadFailed, "failed to read config file",
			map[string]interface{}{"path": path})
	}

	return l.LoadBytes(ctx, data, format, path)
}

// LoadBytes parses data in the given format. The filename is used only in errors.
func (l *Loader) LoadBytes(ctx context.Context, data []byte, format Format, filename string) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeCUELoadFailed, "context cancelled")
	}
	if filename == "" {
		filename = "<input>"
	}

	value, err := l.compile(data, format, filename)
	if err != nil {
		return Config{}, err
	}

	unified := l.schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final(), cue.All()); err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeCUEValidationFailed, "config does not match schema",
			map[string]interface{}{
				"filename": filename,
				"details":  cueerrors.Details(err, nil),
			})
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeCUEDecodeFailed, "failed to decode config",
			map[string]interface{}{"filename": filename})
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeInvalidConfig, "invalid config",
			map[string]interface{}{"filename": filename})
	}
	return cfg, nil
}

func (l *Loader) compile(data []byte, format Format, filename string) (cue.Value, error) {
	switch format {
	case FormatCUE:
		value := l.cueCtx.CompileBytes(data, cue.Filename(filename))
		if err := value.Err(); err != nil {
			return cue.Value{}, errors.WrapWithContext(err, errors.CodeCUEBuildFailed, "failed to compile CUE config",
				map[string]interface{}{"filename": filename})
		}
		return value, nil

	case FormatYAML, FormatJSON:
		// JSON is a subset of YAML.
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cue.Value{}, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse config",
				map[string]interface{}{"filename": filename, "format": string(format)})
		}
		if raw == nil {
			raw = map[string]interface{}{}
		}
		value := l.cueCtx.Encode(raw)
		if err := value.Err(); err != nil {
			return cue.Value{}, errors.WrapWithContext(err, errors.CodeCUEBuildFailed, "failed to encode config",
				map[string]interface{}{"filename": filename})
		}
		return value, nil

	default:
		return cue.Value{}, errors.Newf(errors.CodeInvalidConfig, "unsupported config format %q", format)
	}
}
