package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ianhorswill/step/module"
)

// fileConfig is the optional on-disk config file's shape: search limit,
// extra load paths loaded after the directory named on the command line,
// and a declaration-group allow-list restricting which `[group ...]`
// names ResolveDeclarationGroups will rewrite.
type fileConfig struct {
	DefaultSearchLimit int64    `yaml:"defaultSearchLimit"`
	ExtraLoadPaths     []string `yaml:"extraLoadPaths"`
	AllowedGroups      []string `yaml:"allowedGroups"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFileConfig folds a loaded fileConfig's module-level settings into
// the options used to construct mod. ExtraLoadPaths and AllowedGroups are
// read directly off fcfg by loadAll instead, since they apply per-load
// rather than at construction time.
func applyFileConfig(cfg *fileConfig, opts []module.Option) []module.Option {
	if cfg == nil {
		return opts
	}
	if cfg.DefaultSearchLimit > 0 {
		opts = append(opts, module.WithDefaultSearchLimit(cfg.DefaultSearchLimit))
	}
	return opts
}
