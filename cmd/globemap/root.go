package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"globemap/internal/asset"
	"globemap/internal/config"
	"globemap/internal/engine"
	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/logging"
	"globemap/internal/metrics"
	"globemap/internal/syncer"
	"globemap/internal/tui"
)

type rootOptions struct {
	configPath string
	logLevel   string
	globe      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "globemap",
		Short: "Interactive world map and globe in the terminal",
		Long: "globemap draws country boundaries as a pannable, zoomable flat map or a\n" +
			"rotatable globe. Click a country to select it, drag to pan, scroll to zoom.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: $GLOBEMAP_CONFIG or ./globemap.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	cmd.Flags().BoolVar(&opts.globe, "globe", false, "start in the globe view")

	cmd.AddCommand(newExportMeshCommand(opts))
	return cmd
}

// setup loads configuration and points the global logger at its sink. The
// returned closer releases a log file.
func setup(opts *rootOptions, interactive bool) (*config.Config, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	var out io.Writer = os.Stderr
	closer := func() {}
	switch {
	case cfg.Logging.File != "":
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = func() { _ = f.Close() }
	case interactive:
		// stderr would tear the alternate screen
		out = io.Discard
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: out,
	})
	return cfg, closer, nil
}

func newStore(cfg *config.Config) *geodata.Store {
	return geodata.New(
		geodata.FileSource{LowPath: cfg.Data.LowPath, HighPath: cfg.Data.HighPath},
		geodata.WithLogger(logging.Component("geodata")),
	)
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, closeLog, err := setup(opts, true)
	if err != nil {
		return err
	}
	defer closeLog()

	eopts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	store := newStore(cfg)
	bridge := &tui.Bridge{}

	var loader asset.Loader
	if cfg.Globe.AssetPath != "" {
		loader = asset.ForPath(cfg.Globe.AssetPath)
	}
	mp := engine.NewMap(store, bridge, eopts)
	gl := engine.NewGlobe(store, loader, bridge, eopts)

	if path := cfg.Data.StatusPath; path != "" {
		applyStatuses(path, mp, gl)
		stop, err := config.WatchFile(path, func() { applyStatuses(path, mp, gl) })
		if err != nil {
			logging.Warn().Err(err).Msg("status sheet will not reload")
		} else {
			defer func() { _ = stop() }()
		}
	}
	if path := cfg.Data.VisitedPath; path != "" {
		applyVisited(path, mp, gl)
		stop, err := config.WatchFile(path, func() { applyVisited(path, mp, gl) })
		if err != nil {
			logging.Warn().Err(err).Msg("visited list will not reload")
		} else {
			defer func() { _ = stop() }()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := syncer.NewSupervisor("globemap")
	for _, svc := range mp.Services() {
		sup.Add(svc)
	}
	for _, svc := range gl.Services() {
		sup.Add(svc)
	}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		sup.Add(syncer.NewHTTPService("metrics-http", srv, 5*time.Second))
	}
	supDone := sup.ServeBackground(ctx)

	mode := engine.ModeMap
	if opts.globe {
		mode = engine.ModeGlobe
	}
	model := tui.New(ctx, tui.Options{Map: mp, Globe: gl, Mode: mode})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	bridge.Attach(p)

	logging.Info().Str("mode", mode.String()).Msg("starting terminal ui")
	_, runErr := p.Run()
	cancel()
	if err := <-supDone; err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("supervisor stopped with error")
	}
	if errors.Is(runErr, tea.ErrProgramKilled) {
		return nil
	}
	return runErr
}

// applyStatuses colors countries from the status sheet. A bad sheet is
// logged and otherwise ignored.
func applyStatuses(path string, views ...interface {
	SetStatuses(map[string]engine.Status)
}) {
	rows, err := geom.LoadStatusCSV(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("status sheet not loaded")
		return
	}
	statuses, err := engine.StatusesFromRows(rows)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("status sheet has unknown values")
	}
	for _, v := range views {
		v.SetStatuses(statuses)
	}
	logging.Info().Int("countries", len(statuses)).Msg("status sheet applied")
}

// applyVisited highlights the countries in the visited list.
func applyVisited(path string, views ...interface{ SetVisited([]string) }) {
	codes, err := geom.LoadCodeList(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("visited list not loaded")
		return
	}
	for _, v := range views {
		v.SetVisited(codes)
	}
	logging.Info().Int("countries", len(codes)).Msg("visited list applied")
}
