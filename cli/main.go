package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/image"
	"github.com/ankit-chaubey/imgmeta/core/logging"
	"github.com/ankit-chaubey/imgmeta/core/watch"
)

var (
	surgery = &cobra.Command{
		Use:           "surgery",
		Short:         "View metadata embedded in PNG, GIF and JPEG files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	viewCmd = &cobra.Command{
		Use:   "view <file>...",
		Short: "Print the metadata of one or more image files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runView,
	}
	watchCmd = &cobra.Command{
		Use:   "watch <dir>",
		Short: "Print metadata whenever an image in dir is created or rewritten",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	formatsCmd = &cobra.Command{
		Use:   "formats",
		Short: "List the supported image formats",
		Args:  cobra.NoArgs,
		RunE:  runFormats,
	}
	initFlags = func() {
		pf := surgery.PersistentFlags()
		pf.String("config", "", "config file (yaml, toml or json)")
		pf.Bool("json", false, "print JSON instead of text")
		pf.BoolP("verbose", "v", false, "also print payload size, digest and skipped records")
		pf.String("log-level", "", "trace, debug, info, warn, error or off")
		for _, cmd := range []*cobra.Command{viewCmd, watchCmd} {
			cmd.Flags().Bool("extended", false, "include tIME, eXIf, XMP and IPTC records")
			cmd.Flags().Int64("max-inflate", core.DefaultMaxInflateBytes, "cap for decompressed PNG text, in bytes")
		}
		viewCmd.Flags().String("format", "", "force a format (png, gif, jpeg) instead of detecting it")
	}
)

func init() {
	initFlags()
	surgery.AddCommand(viewCmd, watchCmd, formatsCmd)
}

// setup loads the configuration and applies the log level.
func setup(cmd *cobra.Command) (*config, error) {
	logging.ConfigureRuntime()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Level != "" && !logging.SetLevel(cfg.Log.Level) {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level")
	}
	return cfg, nil
}

func printers(cmd *cobra.Command, cfg *config) (out, notices *core.Printer) {
	out = core.NewPrinter(cfg.Output.JSON, cfg.Output.Verbose)
	out.Writer = cmd.OutOrStdout()
	notices = core.NewPrinter(cfg.Output.JSON, cfg.Output.Verbose)
	notices.Writer = cmd.ErrOrStderr()
	return out, notices
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	out, notices := printers(cmd, cfg)
	load := image.Load
	if cfg.Extract.Format != "" {
		format := core.FormatID(strings.ToLower(cfg.Extract.Format))
		if format == "jpg" {
			format = core.FmtJPEG
		}
		h, err := image.New(format)
		if err != nil {
			return err
		}
		load = h.Load
	}
	failed := 0
	for _, path := range args {
		src, m, err := load(path, cfg.options())
		if err != nil {
			failed++
			if !core.IsMalformed(err) && !errors.Is(err, core.ErrUnsupportedFormat) {
				log.Error().Err(err).Str("file", path).Msg("read failed")
				continue
			}
			log.Debug().Err(err).Str("file", path).Msg("extraction failed")
			notices.PrintNotice(path, err)
			continue
		}
		for _, w := range m.WarningList() {
			log.Debug().Err(w).Str("file", path).Msg("record skipped")
		}
		if err := out.PrintMetadata(src, m); err != nil {
			return errors.Wrap(err, "write output")
		}
	}
	if failed == len(args) {
		return errors.Newf("no recognized image among %d file(s)", len(args))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	out, notices := printers(cmd, cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info().Str("dir", args[0]).Msg("watching for images, ctrl-c to stop")
	return watch.New(args[0], cfg.options()).Run(ctx, func(e watch.Event) {
		if e.Err != nil {
			notices.PrintNotice(e.Path, e.Err)
			return
		}
		if err := out.PrintMetadata(core.Source{Name: e.Path, Data: e.Data}, e.Metadata); err != nil {
			log.Error().Err(err).Str("file", e.Path).Msg("write output")
		}
	})
}

func runFormats(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	out, _ := printers(cmd, cfg)
	return out.PrintFormats(image.Supported())
}

func main() {
	if err := surgery.ExecuteContext(context.Background()); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}
