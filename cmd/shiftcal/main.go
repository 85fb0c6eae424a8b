package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"shiftcal/internal/config"
	"shiftcal/internal/convert"
	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/mapper"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string

	// cfg is loaded by the root PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shiftcal",
	Short: "Convert shift schedules to CSV and iCalendar",
	Long: `shiftcal turns a shift schedule table into a cleaned CSV and an
iCalendar (.ics) file that imports into Google Calendar, Outlook or
Apple Calendar.

Run "shiftcal serve" for the upload page, or "shiftcal convert" to
convert a file from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolvePath(configPath)
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		appLog.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		appLog.Debug("config loaded", "path", path, "listen", cfg.Listen, "timezone", cfg.Timezone)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// The version needs no config file.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "shiftcal", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $SHIFTCAL_CONFIG or ./shiftcal.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		appLog.Error("shiftcal failed", err)
		os.Exit(1)
	}
}

// newConverter builds the conversion pipeline from the loaded config.
// A non-empty transformer name overrides cfg.Transformer.
func newConverter(c *config.Config, transformer string) (*convert.Converter, error) {
	if transformer == "" {
		transformer = c.Transformer
	}
	tr, err := convert.TransformerByName(transformer, c.SurnameColumns)
	if err != nil {
		return nil, err
	}
	return convert.New(
		convert.WithTransformer(tr),
		convert.WithAliases(c.AliasTable()),
		convert.WithMaxUpload(c.MaxUploadBytes),
		convert.WithMapperOptions(
			mapper.WithPlaceholder(c.PlaceholderName),
			mapper.WithDefaultDuration(c.DefaultDuration),
			mapper.WithTruthy(c.Truthy),
		),
		convert.WithICSOptions(ics.WithTimezone(c.Timezone)),
	), nil
}
