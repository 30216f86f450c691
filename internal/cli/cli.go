package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmorgan81/imagegen/internal/config"
	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/dmorgan81/imagegen/internal/handler"
	"github.com/dmorgan81/imagegen/internal/inject"
	"github.com/dmorgan81/imagegen/internal/log"
	"github.com/dmorgan81/imagegen/internal/param"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

type Options struct {
	Lookup param.LookupFunc
	Stdout io.Writer
	Stderr io.Writer

	// Override runs after the injector is set up and before anything is
	// invoked from it.
	Override func(*do.Injector)
}

// Run executes one invocation and returns the process exit status.
func Run(ctx context.Context, args []string, opts Options) int {
	level, _ := opts.Lookup("LOG_LEVEL")
	ctx = log.NewContext(ctx, log.New(opts.Stderr, log.ParseLevel(level)))

	cmd := newRootCommand(opts)
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	kind := errs.KindOf(err)
	if kind == errs.KindUnknown {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		fmt.Fprintf(opts.Stderr, "run '%s --help' for usage\n", cmd.Name())
	} else {
		fmt.Fprintf(opts.Stderr, "error (%s): %v\n", kind, err)
	}
	return kind.ExitCode()
}

func newRootCommand(opts Options) *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "imagegen [flags] <prompt>",
		Short: "Generate an image from a text prompt",
		Long: `Send one prompt to a text-to-image service and save the returned image
into IMAGE_OUTPUT_DIR under a timestamped name.

Examples:
  $ imagegen "Funny Cat Please"
  $ imagegen --aspect-ratio 16:9 --size 2K "A lighthouse at dusk"
  $ IMAGE_PROVIDER=dezgo imagegen "A lighthouse at dusk"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var prompt string
			if len(args) == 1 {
				prompt = args[0]
			}
			return generate(cmd, opts, overrides, prompt)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.Model, "model", "", "model name (overrides GEMINI_MODEL or DEZGO_MODEL)")
	flags.StringVar(&overrides.AspectRatio, "aspect-ratio", "", "aspect ratio (overrides IMAGE_ASPECT_RATIO)")
	flags.StringVar(&overrides.ImageSize, "size", "", "image size: 1K, 2K or 4K (overrides IMAGE_SIZE)")

	return cmd
}

func generate(cmd *cobra.Command, opts Options, overrides config.Overrides, prompt string) error {
	ctx := cmd.Context()

	injector := inject.Setup(ctx, opts.Lookup)
	defer func() {
		_ = injector.Shutdown()
	}()
	if opts.Override != nil {
		opts.Override(injector)
	}

	loader, err := do.Invoke[*config.Loader](injector)
	if err != nil {
		return err
	}
	cfg, err := loader.Load(ctx, overrides)
	if err != nil {
		return err
	}
	inject.Configure(injector, cfg)

	h, err := do.Invoke[*handler.Handler](injector)
	if err != nil {
		return err
	}
	out, err := h.Handle(ctx, handler.Input{Prompt: prompt})
	if err != nil {
		return err
	}

	report, err := h.Report(ctx, out)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(report)
	return err
}
