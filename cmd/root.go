// Package cmd assembles the camcorder command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/camcorder/internal/config"
	"github.com/smazurov/camcorder/internal/logging"
	"github.com/smazurov/camcorder/internal/version"
)

// Options is the flat CLI options struct. Precedence is CLI flags > env
// vars > config file; see config.LoadOptions.
type Options struct {
	Config string

	Settings     string `toml:"settings.file" env:"SETTINGS_FILE"`
	VideoDir     string `toml:"record.video_dir" env:"VIDEO_DIR"`
	ThumbnailDir string `toml:"preview.thumbnail_dir" env:"THUMBNAIL_DIR"`
	MetricsAddr  string `toml:"metrics.addr" env:"METRICS_ADDR"`

	LoggingLevel     string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRecording string `toml:"logging.recording" env:"LOGGING_RECORDING"`
	LoggingPreview   string `toml:"logging.preview" env:"LOGGING_PREVIEW"`
	LoggingConfig    string `toml:"logging.config" env:"LOGGING_CONFIG"`
}

// NewRootCmd builds the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "camcorder",
		Short:         "Record video from capture sources",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadOptions(opts, cmd); err != nil {
				return fmt.Errorf("load options: %w", err)
			}
			// The [logging] table may carry module keys beyond the
			// three with dedicated flags; start from the file and
			// overlay the resolved flag values.
			cfg := config.LoadLoggingConfig(opts.Config)
			cfg.Level = opts.LoggingLevel
			cfg.Format = opts.LoggingFormat
			cfg.Modules["recording"] = opts.LoggingRecording
			cfg.Modules["preview"] = opts.LoggingPreview
			cfg.Modules["config"] = opts.LoggingConfig
			logging.Initialize(cfg)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.Config, "config", "c", "config.toml", "Path to configuration file")
	pf.StringVar(&opts.Settings, "settings", "camcorder.toml", "Persisted recording settings file")
	pf.StringVar(&opts.VideoDir, "video-dir", "", "Output directory for recordings")
	pf.StringVar(&opts.ThumbnailDir, "thumbnail-dir", "", "Output directory for preview thumbnails")
	pf.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address")
	pf.StringVar(&opts.LoggingLevel, "logging-level", "info", "Global logging level (debug, info, warn, error)")
	pf.StringVar(&opts.LoggingFormat, "logging-format", "text", "Logging format (text, json)")
	pf.StringVar(&opts.LoggingRecording, "logging-recording", "info", "Recording logging level")
	pf.StringVar(&opts.LoggingPreview, "logging-preview", "info", "Preview logging level")
	pf.StringVar(&opts.LoggingConfig, "logging-config", "info", "Settings store logging level")

	root.AddCommand(
		createFormatsCmd(opts),
		createShowCmd(opts),
		createRecordCmd(opts),
		createPhotoCmd(opts),
	)
	return root
}
