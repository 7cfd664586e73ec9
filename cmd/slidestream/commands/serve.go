package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slidestream/slidestream/internal/api"
	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/config"
	"github.com/slidestream/slidestream/internal/export"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/mjpeg"
	"github.com/slidestream/slidestream/internal/osd"
)

var serveCmd = &cobra.Command{
	Use:   "serve [images...]",
	Short: "Start the MJPEG stream server",
	Long: `Start the SlideStream HTTP server and the streaming compositing loop.

Images given as arguments override the configured image list. The server
serves the multipart MJPEG stream, a JSON status API, a websocket status
feed, Prometheus metrics, and a built-in viewer page.`,
	Example: `  # Stream the configured image list on the default port (8080)
  slidestream serve

  # Stream specific images on a custom port
  slidestream serve --port 9090 photos/*.jpg

  # Stream once through the list instead of looping
  slidestream serve --no-loop photos/*.jpg

  # Start with debug logging
  slidestream serve --log-level debug photos/*.jpg`,
	RunE: runServe,
}

var (
	serveNoLoop bool
	serveOSD    bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveNoLoop, "no-loop", false, "stop after one pass over the image list")
	serveCmd.Flags().BoolVar(&serveOSD, "osd", false, "overlay file metadata on each frame")
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	logLevel := configMgr.GetLogLevel()
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		logLevel = viper.GetString("log_level")
	}
	logger.Init(logLevel, true)
	log := logger.WithComponent("serve")

	cfg := configMgr.Get()
	settings, err := cfg.StreamSettings()
	if err != nil {
		return fmt.Errorf("invalid stream config: %w", err)
	}
	if viper.IsSet("stream.port") && viper.GetInt("stream.port") > 0 {
		settings.Port = viper.GetInt("stream.port")
	}
	if len(args) > 0 {
		settings.Images = args
	}
	if serveNoLoop {
		settings.Loop = false
	}
	if serveOSD {
		settings.OSDEnabled = true
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	m := metrics.New()
	broadcaster := mjpeg.NewBroadcaster(settings.MaxClients, settings.Blacklist)
	broadcaster.SetMetrics(m)
	if err := broadcaster.Start(); err != nil {
		return err
	}

	registry := codec.NewRegistry()
	notifier := export.NewNotifier(len(settings.Images))
	task, err := mjpeg.NewFrameTask(settings, registry, broadcaster, osd.FileInfoProvider{}, notifier)
	if err != nil {
		return fmt.Errorf("failed to build frame task: %w", err)
	}
	task.SetMetrics(m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go task.Run()
	go func() {
		for p := range notifier.Progress() {
			log.Debug().Int("percent", p.Percent).Msg(p.Message)
		}
	}()

	server := api.NewServer(configMgr, broadcaster, m)

	log.Info().
		Int("port", settings.Port).
		Int("images", len(settings.Images)).
		Bool("loop", settings.Loop).
		Msg("SlideStream is running")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(ctx, settings.BindAddr, settings.Port)
	}()

	select {
	case err := <-serveErr:
		task.Cancel()
		return err
	case d := <-notifier.Done():
		// Single-pass stream finished; shut the server down too.
		if !d.Success && d.Message != "canceled" {
			stop()
			<-serveErr
			return fmt.Errorf("stream failed: %s", d.Message)
		}
		log.Info().Msg(d.Message)
		stop()
		return <-serveErr
	}
}
