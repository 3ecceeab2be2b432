package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pitchdeck/internal/config"
	"pitchdeck/internal/deck"
	"pitchdeck/internal/keys"
	"pitchdeck/internal/logger"
	"pitchdeck/internal/presenter"
	"pitchdeck/internal/tui"
	"pitchdeck/internal/web"
	"pitchdeck/slides"
)

const version = "v0.1.0"

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"slides":    "slides_dir",
	"http":      "http_addr",
	"log-level": "log_level",
	"log-file":  "log_file",
	"style":     "style",
	"wrap":      "word_wrap",
	"watch-exe": "watch_exe",
}

// newRootCmd builds the command tree. stop cancels the process context; it
// is used to shut down when the executable is replaced.
func newRootCmd(stop func()) *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "pitchdeck",
		Short:         "Present a slide deck in the terminal or the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./pitchdeck.yaml)")
	root.PersistentFlags().String("slides", "", "directory of markdown slides (default: built-in deck)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		return config.Load(configFile, func(v *viper.Viper) error {
			for name, key := range flagKeys {
				if f := cmd.Flags().Lookup(name); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	present := &cobra.Command{
		Use:   "present",
		Short: "Present in the terminal; arrow keys navigate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			serve, _ := cmd.Flags().GetBool("serve")
			return runPresent(cmd.Context(), cfg, serve)
		},
	}
	present.Flags().Bool("serve", false, "also serve the deck to browsers, following the terminal")
	present.Flags().String("http", "localhost:8080", "browser listen address (with --serve)")
	present.Flags().String("log-file", "", "write logs to this file")
	present.Flags().String("style", "auto", "glamour style (auto, dark, light, notty)")
	present.Flags().Int("wrap", 80, "initial word wrap width")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deck to browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, stop)
		},
	}
	serveCmd.Flags().String("http", "localhost:8080", "listen address")
	serveCmd.Flags().Bool("watch-exe", false, "shut down when the executable is replaced")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the slides of the deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			d, err := loadDeck(cfg.SlidesDir)
			if err != nil {
				return err
			}
			return printDeck(cmd.OutOrStdout(), d)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pitchdeck %s\n", version)
		},
	}

	root.AddCommand(present, serveCmd, list, versionCmd)
	// Presenting is the default, like running the terminal presenter bare.
	root.Flags().AddFlagSet(present.Flags())
	root.Args = cobra.NoArgs
	root.RunE = present.RunE
	return root
}

// loadDeck returns the deck in dir, or the built-in deck when dir is empty.
func loadDeck(dir string) (*deck.Deck, error) {
	if dir == "" {
		return deck.Load(slides.FS)
	}
	d, err := deck.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading slides from %s: %w", dir, err)
	}
	return d, nil
}

func newController(cfg *config.Config) (*presenter.Controller, error) {
	d, err := loadDeck(cfg.SlidesDir)
	if err != nil {
		return nil, err
	}
	slog.Debug("deck loaded", "title", d.Title(), "slides", d.Len())
	return presenter.New(d)
}

func runPresent(ctx context.Context, cfg *config.Config, serve bool) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// The terminal belongs to the presenter; logs go to a file or nowhere.
	out, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	logger.Setup(out, level)

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	stream := &keys.Stream{}

	var webDone chan error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if serve {
		srv, err := web.New(ctrl, stream)
		if err != nil {
			return err
		}
		webDone = make(chan error, 1)
		go func() { webDone <- srv.Run(ctx, cfg.HTTPAddr) }()
	}

	err = tui.Run(ctx, ctrl, stream, tui.Options{Style: cfg.Style, WordWrap: cfg.WordWrap})
	cancel()
	if webDone != nil {
		if werr := <-webDone; werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func runServe(ctx context.Context, cfg *config.Config, stop func()) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Setup(os.Stderr, level)

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	stream := &keys.Stream{}
	release := ctrl.Mount(stream)
	defer release()

	if cfg.WatchExe {
		if err := watchExecutable(ctx, stop); err != nil {
			slog.WarnContext(ctx, "cannot watch executable", "err", err)
		}
	}

	srv, err := web.New(ctrl, stream)
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.HTTPAddr)
}

func printDeck(w io.Writer, d *deck.Deck) error {
	title := d.Title()
	if title == "" {
		title = "pitchdeck"
	}
	header := lipgloss.NewStyle().Bold(true)
	if _, err := fmt.Fprintln(w, header.Render(title)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range d.Slides() {
		fmt.Fprintf(tw, "%d\t%s\n", s.ID, s.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d slides\n", d.Len())
	return err
}
