package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tpzcyx/pkg/config"
	"tpzcyx/pkg/format"
	"tpzcyx/pkg/generator"
	"tpzcyx/pkg/inspect"
	"tpzcyx/pkg/pattern"
	"tpzcyx/pkg/visualization"
)

// dimFlags are the size flags shared by the generating commands. A flag
// left unset takes its value from the configuration.
type dimFlags struct {
	t, p, z, c, h, w int
}

func (d *dimFlags) register(cmd *cobra.Command, channels bool) {
	f := cmd.Flags()
	f.IntVar(&d.t, "time", 0, "Time points")
	f.IntVar(&d.p, "positions", 0, "Stage positions")
	f.IntVar(&d.z, "z-slices", 0, "Z slices")
	if channels {
		f.IntVar(&d.c, "channels", 0, "Channels")
	}
	f.IntVar(&d.h, "height", 0, "Frame height in pixels")
	f.IntVar(&d.w, "width", 0, "Frame width in pixels")
}

func (d *dimFlags) resolve(cmd *cobra.Command, def format.Dimensions) format.Dimensions {
	pick := func(name string, v, fallback int) int {
		if cmd.Flags().Changed(name) {
			return v
		}
		return fallback
	}
	return format.NewDimensions(
		pick("time", d.t, def.T),
		pick("positions", d.p, def.P),
		pick("z-slices", d.z, def.Z),
		pick("channels", d.c, def.C),
		pick("height", d.h, def.Y),
		pick("width", d.w, def.X),
	)
}

func (a *app) generatorOptions(extra ...generator.Option) []generator.Option {
	opts := []generator.Option{generator.WithConfig(a.cfg), generator.WithLogger(a.logger)}
	return append(opts, extra...)
}

func (a *app) path(p string) string {
	return a.cfg.ResolvePath(p)
}

func (a *app) printGenerated(cmd *cobra.Command, path string) {
	meta, data := format.Paths(path)
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ Generated: "+meta+" and "+data))
}

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		kind   string
		output string
		dims   dimFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a dataset whose channels all use one pattern kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := pattern.ParseKind(kind)
			if err != nil {
				return err
			}
			d := dims.resolve(cmd, a.cfg.Dimensions())
			if err := d.Validate(); err != nil {
				return err
			}
			if _, err := format.Budget(d); err != nil {
				return err
			}

			specs := make([]pattern.Spec, d.C)
			for i := range specs {
				specs[i], err = pattern.Default(k, pattern.Seed(a.cfg.Generator.Seed+uint64(i)))
				if err != nil {
					return err
				}
			}

			path := a.path(output)
			if err := generator.GenerateCustomPattern6D(path, d.T, d.P, d.Z, d.Y, d.X, specs, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Pattern kind: "+kindList())
	cmd.Flags().StringVarP(&output, "output", "o", "test", "Output dataset path")
	dims.register(cmd, true)
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func kindList() string {
	names := make([]string, 0, len(pattern.Kinds()))
	for _, k := range pattern.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func (a *app) newMockCmd() *cobra.Command {
	var (
		output string
		dims   dimFlags
	)

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Generate a dataset cycling through the default mock patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := dims.resolve(cmd, a.cfg.Dimensions())
			path := a.path(output)
			if err := generator.GenerateMock6D(path, d.T, d.P, d.Z, d.C, d.Y, d.X, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "mock", "Output dataset path")
	dims.register(cmd, true)
	return cmd
}

func (a *app) newSmallCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "small",
		Short: "Generate the 3×1×2×2×32×32 test fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path(output)
			if err := generator.GenerateSmallTestFile(path, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "small_test", "Output dataset path")
	return cmd
}

func (a *app) newMinimalCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "minimal",
		Short: "Generate the 2×1×1×2×8×8 constant-valued fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path(output)
			if err := generator.GenerateMinimal(path, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "minimal", "Output dataset path")
	return cmd
}

func (a *app) newRealisticCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "realistic",
		Short: "Generate a 10×1×5×3×256×256 phase, GFP and mCherry time-lapse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path(output)
			if err := generator.GenerateRealisticDataset(path, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "realistic", "Output dataset path")
	return cmd
}

func (a *app) newNoiseCmd() *cobra.Command {
	var (
		output string
		w, h   int
		lo, hi float64
	)

	cmd := &cobra.Command{
		Use:   "noise",
		Short: "Generate a single 2D frame of uniform noise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path(output)
			if err := generator.Generate2DNoise(path, w, h, lo, hi, a.generatorOptions()...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "noise", "Output dataset path")
	cmd.Flags().IntVar(&w, "width", 256, "Frame width in pixels")
	cmd.Flags().IntVar(&h, "height", 256, "Frame height in pixels")
	cmd.Flags().Float64Var(&lo, "min", 100, "Lowest noise value")
	cmd.Flags().Float64Var(&hi, "max", 800, "Highest noise value")
	return cmd
}

func (a *app) newCustomCmd() *cobra.Command {
	var (
		output   string
		patterns string
		dims     dimFlags
	)

	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Generate a dataset with one channel per entry of a pattern file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, specs, err := config.LoadPatterns(patterns)
			if err != nil {
				return err
			}
			d := dims.resolve(cmd, a.cfg.Dimensions())
			path := a.path(output)
			opts := a.generatorOptions(generator.WithChannelNames(names...))
			if err := generator.GenerateCustomPattern6D(path, d.T, d.P, d.Z, d.Y, d.X, specs, opts...); err != nil {
				return err
			}
			a.printGenerated(cmd, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "custom", "Output dataset path")
	cmd.Flags().StringVar(&patterns, "patterns", "", "YAML file listing one pattern per channel")
	dims.register(cmd, false)
	_ = cmd.MarkFlagRequired("patterns")
	return cmd
}

func (a *app) newValidateCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "validate PATH",
		Short: "Check a dataset's descriptor and payload size without reading the payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.path(args[0])
			if plain {
				return inspect.Validate6DFile(cmd.OutOrStdout(), path)
			}
			s, err := inspect.Validate(path)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print unstyled output")
	return cmd
}

func (a *app) newInspectCmd() *cobra.Command {
	var (
		threshold float64
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Load a dataset and print channel and first-frame statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.path(args[0])
			opts := []inspect.Option{inspect.WithConfig(a.cfg), inspect.WithLogger(a.logger)}
			if cmd.Flags().Changed("threshold") {
				opts = append(opts, inspect.WithThreshold(threshold))
			}

			if plain {
				return inspect.LoadAndInspect6DFile(cmd.OutOrStdout(), path, opts...)
			}
			r, err := inspect.Inspect(path, opts...)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", inspect.DefaultSaturationThreshold, "Saturation threshold")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print unstyled output")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		t, p, z, c int
		output     string
		axis       string
		position   int
		sequence   string
		window     []float64
	)

	cmd := &cobra.Command{
		Use:   "export PATH",
		Short: "Render frames or orthogonal sections of a dataset as images",
		Long: `Render the frame (t, p, z, c) as a 16-bit PNG, or a JPEG when the
output ends in .jpg. --axis x or y renders a section through the Z stack
at --position instead; --sequence t or z writes every frame along that
axis into the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := format.Load(a.path(args[0]))
			if err != nil {
				return err
			}
			viewer := visualization.NewViewer(v)
			if len(window) != 0 {
				if len(window) != 2 {
					return fmt.Errorf("--window takes MIN,MAX")
				}
				if err := viewer.SetWindow(window[0], window[1]); err != nil {
					return err
				}
			}

			out := a.path(output)
			if sequence != "" {
				if err := viewer.SaveFrameSequence(sequence, p, c, out); err != nil {
					return err
				}
				a.logger.Debug("frame sequence exported", zap.String("dir", out), zap.String("axis", sequence))
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ Exported frames to "+out))
				return nil
			}

			var img *image.Gray16
			switch strings.ToLower(axis) {
			case "", "z":
				img, err = viewer.ExtractFrame(t, p, z, c)
			default:
				img, err = viewer.ExtractSlice(axis, t, p, c, position)
			}
			if err != nil {
				return err
			}
			if err := viewer.SaveFrame(img, out); err != nil {
				return err
			}
			a.logger.Debug("frame exported", zap.String("file", out))
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ Exported "+filepath.Base(out)))
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&t, "t", 0, "Time index")
	f.IntVar(&p, "p", 0, "Position index")
	f.IntVar(&z, "z", 0, "Z index")
	f.IntVar(&c, "c", 0, "Channel index")
	f.StringVarP(&output, "output", "o", "frame.png", "Output image, or directory with --sequence")
	f.StringVar(&axis, "axis", "z", "Section axis: z (frame), y or x")
	f.IntVar(&position, "position", 0, "Section position along --axis")
	f.StringVar(&sequence, "sequence", "", "Export every frame along t or z")
	f.Float64SliceVar(&window, "window", nil, "Fixed intensity window MIN,MAX (default: per image)")
	return cmd
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ Wrote "+path))
			return nil
		},
	})
	return cmd
}
