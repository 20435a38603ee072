package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framepipe/pkg/adapters/filesink"
	"github.com/user/framepipe/pkg/adapters/ggrenderer"
	"github.com/user/framepipe/pkg/adapters/nullsink"
	"github.com/user/framepipe/pkg/adapters/osfilesystem"
	"github.com/user/framepipe/pkg/adapters/wsdisplay"
	"github.com/user/framepipe/pkg/config"
	"github.com/user/framepipe/pkg/display"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/orchestrator"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/plugin"
	"github.com/user/framepipe/pkg/ports"
	"github.com/user/framepipe/pkg/summarizer"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     l10n.T("Feed saved frames through a configured pipeline"),
		ArgsUsage: "FRAME...",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true, Usage: l10n.T("Pipeline configuration file (required)"), Category: l10n.T("Input")},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: l10n.T("Environment file read before the configuration"), Category: l10n.T("Input")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: l10n.T("Directory for stage outputs"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "ws", Usage: l10n.T("Serve the live view on this address (e.g., :8080)"), Category: l10n.T("Output")},
			&cli.BoolFlag{Name: "hold", Usage: l10n.T("Keep serving the live view until interrupted"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: l10n.T("Output")},
		}, pluginFlags()...),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("%w: FRAME", errArgument)
	}
	if err := config.LoadEnv(c.String("env-file")); err != nil {
		return err
	}
	cfg, err := config.LoadFromFile(c.String("config"))
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if c.IsSet("out") {
		cfg.Display.OutputDir = c.String("out")
	}
	if c.IsSet("ws") {
		cfg.Display.WSAddr = c.String("ws")
	}
	applyPluginFlags(c, &cfg.Plugin)

	specs, err := cfg.BuildStages()
	if err != nil {
		return err
	}

	log := newLogger(c, cfg.LogLevel)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	runID := uuid.NewString()
	log.Info("Starting pipeline run %s", runID)
	started := time.Now()

	reg, loader := newRegistry(cfg.Plugin, log)
	defer reg.Close()

	mgr := orchestrator.New(reg, orchestrator.WithLogger(log))
	for i, spec := range specs {
		if st := mgr.AddStage(spec); st != pipeline.StatusOK {
			return fmt.Errorf("stage %d: %w", i, st.Err())
		}
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	outDir := filepath.Join(cfg.Display.OutputDir, runID)

	var targets []ports.Displayer
	var sink *filesink.Sink
	if cfg.Display.SaveTLV || cfg.Display.SavePNG {
		sink = filesink.New(outDir, fs, renderer,
			filesink.WithLogger(log),
			filesink.WithTLV(cfg.Display.SaveTLV),
			filesink.WithPNG(cfg.Display.SavePNG),
		)
		targets = append(targets, sink)
	}

	var sheet *display.ContactSheet
	if cfg.Display.ContactSheet != "" {
		sheet = display.NewContactSheet(renderer, display.SheetOptions{
			Columns:   cfg.Display.Columns,
			TileWidth: cfg.Display.TileWidth,
			FontPath:  cfg.Display.FontPath,
		}, log)
		targets = append(targets, sheet)
	}

	serveErr := make(chan error, 1)
	if cfg.Display.WSAddr != "" {
		live := wsdisplay.New(renderer,
			wsdisplay.WithLogger(log),
			wsdisplay.WithQuality(cfg.Display.WSQuality),
			wsdisplay.WithMaxWidth(cfg.Display.WSMaxWidth),
			wsdisplay.WithSession(runID),
		)
		go func() { serveErr <- live.ListenAndServe(ctx, cfg.Display.WSAddr) }()
		targets = append(targets, live)
	}

	if len(targets) == 0 {
		targets = append(targets, nullsink.New())
	}
	fan := display.NewFanout(log, targets...)
	mgr.RegisterDisplayer(fan)

	mgr.Initialize()
	defer mgr.Deinitialize()

	files, frames, feedErr := feed(ctx, mgr, fs, c.Args().Slice())
	if feedErr == nil && c.Bool("hold") && cfg.Display.WSAddr != "" {
		<-ctx.Done()
	}
	interrupted := errors.Is(feedErr, context.Canceled)
	if interrupted {
		feedErr = nil
	}
	mgr.Stop()
	cancel()

	stats := mgr.Stats()
	log.Info("Processed %d of %d frames (%d dropped)", stats.Processed, stats.Ingested, stats.Dropped)

	var errs []error
	if feedErr != nil {
		errs = append(errs, feedErr)
	}
	if err := fan.Close(); err != nil {
		errs = append(errs, err)
	}
	select {
	case err := <-serveErr:
		if err != nil {
			errs = append(errs, fmt.Errorf("live view: %w", err))
		}
	default:
	}

	builder := summarizer.NewBuilder().
		WithRunID(runID).
		WithInput(summarizer.InputInfo{
			ConfigPath: c.String("config"),
			PluginPath: pluginPath(loader),
			Files:      files,
			Frames:     frames,
		}).
		WithPipeline(summarizer.PipelineInfo{
			Ingested:  stats.Ingested,
			Processed: stats.Processed,
			Dropped:   stats.Dropped,
			Duration:  time.Since(started),
		})
	for i, spec := range specs {
		info := summarizer.StageInfo{
			Index:     i,
			Backend:   spec.Backend.String(),
			Module:    spec.Module.String(),
			Algorithm: spec.Algorithm,
		}
		if fn, ok := reg.Lookup(spec.Backend, spec.Module, spec.Algorithm); ok {
			info.Name = l10n.T(fn.Name)
		}
		if i < len(stats.Stages) {
			info.OK = stats.Stages[i].OK
			info.Failed = stats.Stages[i].Failed
			info.Last = stats.Stages[i].Last.String()
		}
		builder.AddStage(info)
	}

	if sink != nil && sink.Written() > 0 {
		builder.AddOutput(outDir)
	}
	if sheet != nil && sheet.Tiles() > 0 {
		if err := sheet.Save(fs, cfg.Display.ContactSheet); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("Contact sheet saved to %s", cfg.Display.ContactSheet)
			builder.AddOutput(cfg.Display.ContactSheet)
		}
	}

	if path := c.String("summary"); path != "" {
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs)
		if err := w.Write(path, builder.Build()); err != nil {
			log.Warn("Failed to write summary: %v", err)
		} else {
			log.Info("Summary saved to %s", path)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	if !interrupted {
		log.Info("Pipeline completed successfully")
	}
	return nil
}

// feed ingests every frame of every file matching patterns in order,
// waiting for the worker to finish each frame before publishing the next.
func feed(ctx context.Context, mgr *orchestrator.Manager, fs ports.FileSystem, patterns []string) (files, frames int, err error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := fs.Glob(pattern)
		if err != nil {
			return 0, 0, err
		}
		if len(matches) == 0 {
			return 0, 0, fmt.Errorf("%w: no frames match %s", errArgument, pattern)
		}
		paths = append(paths, matches...)
	}

	img := &imagebuf.Image{}
	for _, path := range paths {
		data, err := fs.ReadFile(path)
		if err != nil {
			return files, frames, err
		}
		if err := img.Load(bytes.NewReader(data)); err != nil {
			return files, frames, fmt.Errorf("load %s: %w", path, err)
		}
		files++
		for n := 0; n < img.FrameCount(); n++ {
			if err := img.Select(n); err != nil {
				return files, frames, err
			}
			if err := mgr.OnNewFrame(img); err != nil {
				return files, frames, fmt.Errorf("%s frame %d: %w", path, n, err)
			}
			frames++
			if err := mgr.WaitIdle(ctx); err != nil {
				return files, frames, err
			}
		}
	}
	return files, frames, nil
}

func pluginPath(loader *plugin.Loader) string {
	if loader == nil || !loader.Loaded() {
		return ""
	}
	return loader.Path()
}
