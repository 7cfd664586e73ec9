package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "slidestream",
		Short: "SlideStream - Slideshow video exporter and MJPEG streamer",
		Long: `SlideStream turns ordered image collections into video: either an
encoded slideshow file with transitions and Ken Burns effects, or a live
MJPEG stream any browser or media player can show.

Features:
  • 24 transition styles between images, plus random selection
  • Ken Burns zoom and pan over each image
  • On-screen metadata overlay (name, date, camera fields)
  • Export to mp4/mkv/avi/mpg through an external ffmpeg encoder
  • MJPEG streaming over HTTP with client limits and IP blacklisting
  • Persistent configuration
  • REST API and Prometheus metrics`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/slidestream/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "stream server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("stream.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
