package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/config"
	"github.com/slidestream/slidestream/internal/effect"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/transition"
)

var exportCmd = &cobra.Command{
	Use:   "export [images...]",
	Short: "Export a slideshow video file",
	Long: `Compose the given images into an encoded slideshow video.

Each pair of consecutive images is joined by the configured transition,
and each image is animated with the configured Ken Burns effect for the
configured delay. Encoding runs through an external ffmpeg process.`,
	Example: `  # Export with settings from the config file
  slidestream export photos/*.jpg

  # Pick transition and effect explicitly
  slidestream export --transition fade --effect kenburns-zoom-in photos/*.jpg

  # Random transitions, reproducible across runs
  slidestream export --transition random --seed 42 photos/*.jpg

  # Stage frames on disk instead of piping raw video
  slidestream export --method concat photos/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

var (
	exportOutputDir  string
	exportBaseName   string
	exportFormat     string
	exportTransition string
	exportEffect     string
	exportDelay      int
	exportSeed       int64
	exportMethod     string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutputDir, "output-dir", "o", "", "directory for the output file (default current)")
	exportCmd.Flags().StringVar(&exportBaseName, "name", "", "output file name without extension")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "container format (mp4, mkv, avi, mpg)")
	exportCmd.Flags().StringVarP(&exportTransition, "transition", "t", "", "transition between images (see 'slidestream list transitions')")
	exportCmd.Flags().StringVarP(&exportEffect, "effect", "e", "", "effect over each image (see 'slidestream list effects')")
	exportCmd.Flags().IntVarP(&exportDelay, "delay", "d", 0, "seconds each image is shown")
	exportCmd.Flags().Int64Var(&exportSeed, "seed", 0, "seed for random transition/effect selection")
	exportCmd.Flags().StringVar(&exportMethod, "method", "encoder", "export method: encoder (pipe raw video) or concat (stage JPEG frames)")
}

func runExport(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	logLevel := configMgr.GetLogLevel()
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		logLevel = viper.GetString("log_level")
	}
	logger.Init(logLevel, true)

	settings, err := configMgr.Get().ExportSettings(args)
	if err != nil {
		return fmt.Errorf("invalid export config: %w", err)
	}
	if exportOutputDir != "" {
		settings.OutputDir = exportOutputDir
	}
	if exportBaseName != "" {
		settings.BaseName = exportBaseName
	}
	if exportFormat != "" {
		if settings.Format, err = export.ParseVidFormat(exportFormat); err != nil {
			return err
		}
	}
	if exportTransition != "" {
		if settings.Transition, err = transition.ParseKind(exportTransition); err != nil {
			return err
		}
	}
	if exportEffect != "" {
		if settings.Effect, err = effect.ParseKind(exportEffect); err != nil {
			return err
		}
	}
	if exportDelay > 0 {
		settings.Delay = exportDelay
	}
	if exportSeed != 0 {
		settings.Seed = exportSeed
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	notifier := export.NewNotifier(len(settings.Images))
	m := metrics.New()

	type canceler interface {
		Run()
		Cancel()
		SetMetrics(*metrics.Metrics)
	}
	var task canceler
	switch exportMethod {
	case "concat":
		task = export.NewConcatTask(settings, notifier)
	case "encoder", "":
		task = export.NewEncoderTask(settings, codec.NewRegistry(), notifier)
	default:
		return fmt.Errorf("unknown export method %q", exportMethod)
	}
	task.SetMetrics(m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go task.Run()
	go func() {
		<-ctx.Done()
		task.Cancel()
	}()

	for {
		select {
		case p, ok := <-notifier.Progress():
			if !ok {
				continue
			}
			if p.Message != "" {
				fmt.Printf("[%3d%%] %s\n", p.Percent, p.Message)
			}
		case d := <-notifier.Done():
			logger.WithComponent("export").Info().
				Uint64("frames", m.FramesExported.Load()).
				Uint64("decode_errors", m.DecodeErrors.Load()).
				Uint64("encode_errors", m.EncodeErrors.Load()).
				Msg("Export pipeline counters")
			if !d.Success {
				return fmt.Errorf("export failed: %s", d.Message)
			}
			fmt.Printf("Export complete: %s\n", d.Path)
			return nil
		}
	}
}
