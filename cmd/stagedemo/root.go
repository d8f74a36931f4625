package main

import (
	"context"
	_ "embed"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/stage"
	_ "github.com/gogpu/stage/backend/canvas"
	_ "github.com/gogpu/stage/backend/dom"
	_ "github.com/gogpu/stage/backend/gpu"
	"github.com/gogpu/stage/backend/svg"
	"github.com/gogpu/stage/internal/scenefile"
)

//go:embed demo.toml
var demoScene []byte

// newLogger creates the charm logger used as the slog handler.
func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return stage.Logger()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "stagedemo",
		Short:        "Drive a stage display from a scene file",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			l := slog.New(newLogger(stderr, level))
			stage.SetLogger(l)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, l))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRenderersCmd())
	return root
}

func loadScene(args []string) (*scenefile.Scene, error) {
	if len(args) == 0 {
		return scenefile.Parse(demoScene)
	}
	return scenefile.Load(args[0])
}

type runOptions struct {
	frames     int
	pngPath    string
	svgPath    string
	dump       bool
	assertions bool
	stats      bool
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run [scene.toml]",
		Short: "Run frames of a scene and write the output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScene(args)
			if err != nil {
				return err
			}
			return runScene(cmd.Context(), cmd.OutOrStdout(), s, o)
		},
	}
	cmd.Flags().IntVarP(&o.frames, "frames", "n", 0, "number of frames (default: scene setting or last scripted frame)")
	cmd.Flags().StringVar(&o.pngPath, "png", "", "write the composited output as PNG")
	cmd.Flags().StringVar(&o.svgPath, "svg", "", "write the svg blocks as an SVG document")
	cmd.Flags().BoolVar(&o.dump, "dump", false, "print the instance and block tree after the last frame")
	cmd.Flags().BoolVar(&o.assertions, "assert", true, "check structural invariants every frame")
	cmd.Flags().BoolVar(&o.stats, "stats", false, "print per-frame statistics")
	return cmd
}

func frameCount(s *scenefile.Scene, flag int) int {
	switch {
	case flag > 0:
		return flag
	case s.Display.Frames > 0:
		return s.Display.Frames
	default:
		return max(s.LastFrame()+1, 1)
	}
}

func runScene(ctx context.Context, out io.Writer, s *scenefile.Scene, o runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := loggerFromContext(ctx)

	tree, err := s.Build()
	if err != nil {
		return err
	}
	opts, err := s.Options()
	if err != nil {
		return err
	}
	opts = append(opts, stage.WithLogger(log), stage.WithAssertions(o.assertions))
	d, err := stage.New(tree.Root, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Dispose(); err != nil {
			log.Warn("dispose display", "err", err)
		}
	}()
	d.OnCursorChange(func(name string) {
		log.Info("cursor changed", "cursor", name)
	})
	d.OnResize(func(w, h int) {
		log.Info("display resized", "width", w, "height", h)
	})

	start := time.Now()
	frames := frameCount(s, o.frames)
	for f := 0; f < frames; f++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tree.ApplyFrame(s, f, d); err != nil {
			return err
		}
		if err := d.UpdateDisplay(); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
		if o.stats {
			fmt.Fprintln(out, d.Stats().String())
		}
	}
	c := d.Counts()
	log.Info("frames done",
		"frames", frames,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"instances", c.Instances,
		"drawables", c.Drawables,
		"blocks", c.Blocks)

	if o.pngPath != "" {
		if err := writePNG(o.pngPath, d); err != nil {
			return err
		}
		log.Info("wrote png", "path", o.pngPath)
	}
	if o.svgPath != "" {
		markup, err := svg.Markup(d)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.svgPath, []byte(markup), 0o644); err != nil { //nolint:gosec // output file is user-visible
			return err
		}
		log.Info("wrote svg", "path", o.svgPath)
	}
	if o.dump {
		fmt.Fprint(out, d.DebugDump())
	}
	return nil
}

func writePNG(path string, d *stage.Display) error {
	img := d.Image()
	if img == nil {
		return fmt.Errorf("no output image: no frame was run")
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scene.toml>",
		Short: "Check a scene file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenefile.Load(args[0])
			if err != nil {
				return err
			}
			if _, err := s.Build(); err != nil {
				return err
			}
			if _, err := s.Options(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d steps\n", args[0], len(s.Nodes), len(s.Steps))
			return nil
		},
	}
}

func newRenderersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renderers",
		Short: "List the registered backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, r := range stage.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
		},
	}
}
