package main

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ankit-chaubey/imgmeta/core"
)

const envPrefix = "SURGERY"

type config struct {
	Output struct {
		JSON    bool `mapstructure:"json"`
		Verbose bool `mapstructure:"verbose"`
	} `mapstructure:"output"`
	Extract struct {
		Extended        bool   `mapstructure:"extended"`
		MaxInflateBytes int64  `mapstructure:"max_inflate_bytes"`
		Format          string `mapstructure:"format"`
	} `mapstructure:"extract"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func (c *config) options() core.Options {
	opts := core.DefaultOptions()
	opts.Extended = c.Extract.Extended
	if c.Extract.MaxInflateBytes > 0 {
		opts.MaxInflateBytes = c.Extract.MaxInflateBytes
	}
	return opts
}

// flagKeys binds command line flags to config keys.
var flagKeys = map[string]string{
	"output.json":               "json",
	"output.verbose":            "verbose",
	"extract.extended":          "extended",
	"extract.max_inflate_bytes": "max-inflate",
	"extract.format":            "format",
	"log.level":                 "log-level",
}

// loadConfig resolves flags > env (SURGERY_*, .env included) > config file >
// defaults.
func loadConfig(cmd *cobra.Command) (*config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("output.json", false)
	v.SetDefault("output.verbose", false)
	v.SetDefault("extract.extended", false)
	v.SetDefault("extract.max_inflate_bytes", core.DefaultMaxInflateBytes)
	v.SetDefault("extract.format", "")
	v.SetDefault("log.level", "info")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	for key, name := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, errors.Wrapf(err, "bind --%s", name)
		}
	}
	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}
