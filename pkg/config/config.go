// Package config loads the project file: which type catalogs make up the
// universe, which controls are registered, and how documents are checked.
package config

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/walteh/go-aspx-typer/pkg/bind"
	"github.com/walteh/go-aspx-typer/pkg/document"
	"github.com/walteh/go-aspx-typer/pkg/embed"
	"github.com/walteh/go-aspx-typer/pkg/embed/csharp"
	"github.com/walteh/go-aspx-typer/pkg/embed/treesitter"
	"github.com/walteh/go-aspx-typer/pkg/finder"
	"github.com/walteh/go-aspx-typer/pkg/registry"
	"github.com/walteh/go-aspx-typer/pkg/types"
)

const (
	ParserBuiltin    = "builtin"
	ParserTreeSitter = "treesitter"

	webControls  = "System.Web.UI.WebControls"
	htmlControls = "System.Web.UI.HtmlControls"
)

// Config is the project file.
type Config struct {
	// Types lists YAML type catalogs, relative to the project file. Entries
	// may be doublestar patterns.
	Types         []string   `yaml:"types,omitempty" hcl:"types,optional"`
	Controls      []*Control `yaml:"controls,omitempty" hcl:"control,block"`
	Namespaces    []string   `yaml:"namespaces,omitempty" hcl:"namespaces,optional"`
	ContainerType string     `yaml:"container_type,omitempty" hcl:"container_type,optional"`
	Parser        string     `yaml:"parser,omitempty" hcl:"parser,optional"`
	Inspections   *bool      `yaml:"inspections,omitempty" hcl:"inspections,optional"`
}

// Control is a project-wide control registration.
type Control struct {
	TagPrefix string `yaml:"tag_prefix" hcl:"tag_prefix,attr"`
	Namespace string `yaml:"namespace,omitempty" hcl:"namespace,optional"`
	Assembly  string `yaml:"assembly,omitempty" hcl:"assembly,optional"`
	TagName   string `yaml:"tag_name,omitempty" hcl:"tag_name,optional"`
	Src       string `yaml:"src,omitempty" hcl:"src,optional"`
	Type      string `yaml:"type,omitempty" hcl:"type,optional"`
}

func (c *Control) Registration() registry.Registration {
	return registry.Registration{
		TagPrefix: c.TagPrefix,
		Namespace: c.Namespace,
		Assembly:  c.Assembly,
		TagName:   c.TagName,
		Src:       c.Src,
		Type:      c.Type,
	}
}

// Default is the configuration used without a project file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Controls) == 0 {
		c.Controls = []*Control{{TagPrefix: "asp", Namespace: webControls}}
	}
	if c.ContainerType == "" {
		c.ContainerType = bind.DefaultContainerType
	}
	if c.Parser == "" {
		c.Parser = ParserBuiltin
	}
	if c.Inspections == nil {
		on := true
		c.Inspections = &on
	}
}

// Load reads a project file. Names ending in .yaml or .yml are YAML; anything
// else is HCL.
func Load(ctx context.Context, fs afero.Fs, name string) (*Config, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg, err := decode(name, data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", name, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("file", name).
		Int("catalogs", len(cfg.Types)).
		Int("controls", len(cfg.Controls)).
		Str("parser", cfg.Parser).
		Msg("loaded config")

	return cfg, nil
}

// FileNames are the project files looked up when none is named.
var FileNames = []string{"aspx-typer.yaml", "aspx-typer.yml", "aspx-typer.hcl"}

// Resolve loads name, or else the first of FileNames present in the current
// directory, or else the default configuration. It also returns the
// directory catalog paths are relative to.
func Resolve(ctx context.Context, fs afero.Fs, name string) (*Config, string, error) {
	if name == "" {
		for _, candidate := range FileNames {
			if ok, _ := afero.Exists(fs, candidate); ok {
				name = candidate
				break
			}
		}
	}
	if name == "" {
		zerolog.Ctx(ctx).Debug().Msg("no config file, using defaults")
		return Default(), ".", nil
	}

	cfg, err := Load(ctx, fs, name)
	if err != nil {
		return nil, "", err
	}
	return cfg, path.Dir(name), nil
}

func decode(name string, data []byte) (*Config, error) {
	var cfg Config

	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
		return &cfg, nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"webcontrols":  cty.StringVal(webControls),
			"htmlcontrols": cty.StringVal(htmlControls),
		},
	}

	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var err error
	switch c.Parser {
	case "", ParserBuiltin, ParserTreeSitter:
	default:
		err = multierr.Append(err, errors.Errorf("unknown parser %q", c.Parser))
	}
	for i, ctl := range c.Controls {
		if ctl.TagPrefix == "" {
			err = multierr.Append(err, errors.Errorf("control %d: tag_prefix is required", i))
		}
		switch {
		case ctl.Namespace == "" && ctl.TagName == "":
			err = multierr.Append(err, errors.Errorf("control %d: one of namespace or tag_name is required", i))
		case ctl.Namespace != "" && ctl.TagName != "":
			err = multierr.Append(err, errors.Errorf("control %d: namespace and tag_name are exclusive", i))
		}
	}
	for i, t := range c.Types {
		if strings.TrimSpace(t) == "" {
			err = multierr.Append(err, errors.Errorf("types %d: empty path", i))
		} else if !doublestar.ValidatePattern(t) {
			err = multierr.Append(err, errors.Errorf("types %d: invalid pattern %q", i, t))
		}
	}
	return err
}

// EmbedParser returns the configured parser for embedded code.
func (c *Config) EmbedParser() embed.Parser {
	if c.Parser == ParserTreeSitter {
		return treesitter.New()
	}
	return csharp.New()
}

// Universe loads the framework catalog plus every catalog named by Types.
// dir is the directory of the project file.
func (c *Config) Universe(ctx context.Context, fs afero.Fs, dir string) (*types.Catalog, error) {
	catalog, err := types.Framework()
	if err != nil {
		return nil, errors.Errorf("loading framework catalog: %w", err)
	}

	for _, pattern := range c.Types {
		matches, err := finder.Glob(fs, path.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no type catalog matches %q", pattern)
		}
		for _, m := range matches {
			if err := loadCatalog(fs, catalog, m); err != nil {
				return nil, err
			}
			zerolog.Ctx(ctx).Debug().Str("file", m).Msg("loaded type catalog")
		}
	}
	return catalog, nil
}

func loadCatalog(fs afero.Fs, catalog *types.Catalog, name string) error {
	f, err := fs.Open(name)
	if err != nil {
		return errors.Errorf("opening type catalog: %w", err)
	}
	defer f.Close()
	if err := catalog.Load(f); err != nil {
		return errors.Errorf("loading type catalog %s: %w", name, err)
	}
	return nil
}

// Registry registers every configured control. Failed registrations are
// collected; the registry holds the ones that succeeded.
func (c *Config) Registry(ctx context.Context, u types.Universe) (*registry.Registry, error) {
	reg := registry.New()
	var errs error
	for _, ctl := range c.Controls {
		if _, err := reg.Register(ctx, ctl.Registration(), u); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return reg, errs
}

// Options assembles the document pipeline options. Registration failures
// are logged and do not stop the pipeline.
func (c *Config) Options(ctx context.Context, fs afero.Fs, dir string) (document.Options, error) {
	u, err := c.Universe(ctx, fs, dir)
	if err != nil {
		return document.Options{}, err
	}
	reg, err := c.Registry(ctx, u)
	for _, e := range multierr.Errors(err) {
		zerolog.Ctx(ctx).Warn().Err(e).Msg("control registration failed")
	}
	return document.Options{
		Universe:      u,
		Registry:      reg,
		Namespaces:    c.Namespaces,
		Parser:        c.EmbedParser(),
		ContainerType: c.ContainerType,
		Inspections:   c.Inspections == nil || *c.Inspections,
	}, nil
}

// LoadOptions resolves the project file like Resolve and assembles the
// document pipeline options from it.
func LoadOptions(ctx context.Context, fs afero.Fs, name string) (document.Options, error) {
	cfg, dir, err := Resolve(ctx, fs, name)
	if err != nil {
		return document.Options{}, err
	}
	return cfg.Options(ctx, fs, dir)
}
