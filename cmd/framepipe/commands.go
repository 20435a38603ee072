package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framepipe/pkg/adapters/dynlib"
	"github.com/user/framepipe/pkg/adapters/ggrenderer"
	"github.com/user/framepipe/pkg/adapters/osfilesystem"
	"github.com/user/framepipe/pkg/config"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/plugin"
	"github.com/user/framepipe/pkg/ports"
	"github.com/user/framepipe/pkg/registry"
)

var errArgument = errors.New("missing argument")

// pluginFlags are shared by every command that builds a registry.
func pluginFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "plugin-dir",
			Usage:    l10n.T("Extra directory searched for the user algorithm library"),
			Category: l10n.T("Plugin"),
		},
		&cli.StringFlag{
			Name:     "plugin",
			Usage:    l10n.T("File name of the user algorithm library"),
			Category: l10n.T("Plugin"),
		},
		&cli.BoolFlag{
			Name:     "no-plugin",
			Usage:    l10n.T("Do not load the user algorithm library"),
			Category: l10n.T("Plugin"),
		},
	}
}

// applyPluginFlags merges the plugin flags into cfg.
func applyPluginFlags(c *cli.Context, cfg *config.PluginConfig) {
	cfg.Dirs = append(cfg.Dirs, c.StringSlice("plugin-dir")...)
	if c.IsSet("plugin") {
		cfg.Library = c.String("plugin")
	}
	if c.Bool("no-plugin") {
		cfg.Enabled = false
	}
}

// newRegistry creates a registry whose User_Custom buckets come from the
// plugin described by cfg. The loader is nil when plugins are disabled.
func newRegistry(cfg config.PluginConfig, log ports.Logger) (*registry.Registry, *plugin.Loader) {
	if !cfg.Enabled {
		return registry.New(registry.WithLogger(log)), nil
	}
	opts := []plugin.Option{
		plugin.WithLogger(log),
		plugin.WithSearchDirs(cfg.Dirs...),
	}
	if cfg.Library != "" {
		opts = append(opts, plugin.WithLibraryName(cfg.Library))
	}
	loader := plugin.NewLoader(dynlib.New(), opts...)
	return registry.New(registry.WithLogger(log), registry.WithPlugins(loader)), loader
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: l10n.T("List registered algorithms"),
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: l10n.T("Only this backend")},
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: l10n.T("Only this module")},
		}, pluginFlags()...),
		Action: func(c *cli.Context) error {
			log := newLogger(c, "")

			backends, err := selectBackends(c.String("backend"))
			if err != nil {
				return err
			}
			modules, err := selectModules(c.String("module"))
			if err != nil {
				return err
			}

			cfg := config.Defaults().Plugin
			applyPluginFlags(c, &cfg)
			reg, _ := newRegistry(cfg, log)
			defer reg.Close()

			filtered := c.IsSet("backend") || c.IsSet("module")
			w := c.App.Writer
			for _, b := range backends {
				for _, m := range modules {
					list := reg.AlgorithmList(b, m)
					if len(list) == 0 && !filtered {
						continue
					}
					fmt.Fprintf(w, "%s / %s\n", b, m)
					if len(list) == 0 {
						fmt.Fprintf(w, "  %s\n", l10n.T("(none)"))
					}
					for _, a := range list {
						fmt.Fprintf(w, "  %3d  %s\n", a.Index, a.Name)
					}
				}
			}
			return nil
		},
	}
}

func selectBackends(name string) ([]pipeline.Backend, error) {
	if name == "" {
		all := make([]pipeline.Backend, 0, pipeline.BackendCount)
		for b := pipeline.Backend(0); b < pipeline.BackendCount; b++ {
			all = append(all, b)
		}
		return all, nil
	}
	b, ok := pipeline.ParseBackend(name)
	if !ok {
		return nil, fmt.Errorf(l10n.T("unknown backend %q (want one of %s)"), name, strings.Join(pipeline.BackendNames(), ", "))
	}
	return []pipeline.Backend{b}, nil
}

func selectModules(name string) ([]pipeline.Module, error) {
	if name == "" {
		all := make([]pipeline.Module, 0, pipeline.ModuleCount)
		for m := pipeline.Module(0); m < pipeline.ModuleCount; m++ {
			all = append(all, m)
		}
		return all, nil
	}
	m, ok := pipeline.ParseModule(name)
	if !ok {
		return nil, fmt.Errorf(l10n.T("unknown module %q (want one of %s)"), name, strings.Join(pipeline.ModuleNames(), ", "))
	}
	return []pipeline.Module{m}, nil
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: l10n.T("Write a color bar test frame"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output TLV file path (required)")},
			&cli.UintFlag{Name: "width", Aliases: []string{"W"}, Value: 640, Usage: l10n.T("Frame width")},
			&cli.UintFlag{Name: "height", Aliases: []string{"H"}, Value: 480, Usage: l10n.T("Frame height")},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "YUV422", Usage: l10n.T("Pixel format")},
			&cli.StringFlag{Name: "pattern", Usage: l10n.T("Component order (default depends on the format)")},
			&cli.UintFlag{Name: "camera", Usage: l10n.T("Camera id")},
			&cli.IntFlag{Name: "frames", Value: 1, Usage: l10n.T("Number of frames")},
		},
		Action: func(c *cli.Context) error {
			format, ok := imagebuf.ParseFormat(c.String("format"))
			if !ok {
				return fmt.Errorf(l10n.T("unknown format %q"), c.String("format"))
			}
			opts := []imagebuf.Option{
				imagebuf.WithCameraID(uint32(c.Uint("camera"))),
				imagebuf.WithFrameCount(c.Int("frames")),
			}
			if name := c.String("pattern"); name != "" {
				p, ok := imagebuf.ParsePattern(name)
				if !ok {
					return fmt.Errorf(l10n.T("unknown pattern %q"), name)
				}
				opts = append(opts, imagebuf.WithPattern(p))
			}

			img, err := imagebuf.New(uint32(c.Uint("width")), uint32(c.Uint("height")), format, opts...)
			if err != nil {
				return err
			}
			if err := imagebuf.ColorBars(img); err != nil {
				return err
			}
			out := c.String("output")
			if err := img.SaveFile(out); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, l10n.F("Wrote %s (%s)", out, img))
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     l10n.T("Print the metadata of a saved image"),
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("%w: FILE", errArgument)
			}
			img, err := imagebuf.ReadFile(c.Args().First())
			if err != nil {
				return err
			}

			w := c.App.Writer
			row := func(label string, value any) {
				fmt.Fprintf(w, "%-14s %v\n", l10n.T(label), value)
			}
			row("Size", fmt.Sprintf("%dx%d", img.Width, img.Height))
			row("Format", img.Format)
			row("Pattern", img.Pattern)
			row("Bits", fmt.Sprintf("%d/%d", img.OriginalBit, img.MemoryBit))
			row("Memory align", uint32(img.MemoryAlign))
			row("Camera", img.CameraID)
			row("Enabled", img.Enabled)
			row("Frames", img.FrameCount())
			row("Selected", img.Selected())
			row("Frame size", img.FrameSize())
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     l10n.T("Convert one frame of a saved image to PNG or JPEG"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output image path; .jpg or .jpeg selects JPEG (required)")},
			&cli.IntFlag{Name: "frame", Usage: l10n.T("Frame to export")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Value: 90, Usage: l10n.T("JPEG quality (1-100)")},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("%w: FILE", errArgument)
			}
			img, err := imagebuf.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			if err := img.Select(c.Int("frame")); err != nil {
				return err
			}

			renderer := ggrenderer.New()
			view, err := renderer.FrameImage(img)
			if err != nil {
				return err
			}

			out := c.String("output")
			format := ports.FormatPNG
			switch strings.ToLower(filepath.Ext(out)) {
			case ".jpg", ".jpeg":
				format = ports.FormatJPEG
			}
			data, err := renderer.EncodeImage(view, format, c.Int("quality"))
			if err != nil {
				return err
			}
			if err := osfilesystem.New().WriteFile(out, data); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, l10n.F("Wrote %s (%s)", out, img))
			return nil
		},
	}
}
