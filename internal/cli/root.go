package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/alethia/internal/model"
)

// version is stamped by the release build via
// -ldflags "-X github.com/ppiankov/alethia/internal/cli.version=v1.2.3".
var version = "v0.1.0-dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "alethia",
	Short: "Alethia - Merkle-committed claims with reproducible verification",
	Long: `Alethia commits batches of factual claims under a Merkle root and
verifies them with a deterministic check battery.

Once committed, a claim cannot be silently reworded: its text is bound
to the root, and any party holding the root can challenge a claim by
index. A challenge replays membership and the full battery; a failure
yields a fraud proof any third party can recompute from the record.

Verdicts are deterministic. Same claim, same evidence, same verdict.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alethia %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.alethia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig points viper at the config file (flag first, then
// $HOME/.alethia/config.yaml) and enables ALETHIA_* env overrides.
func initConfig() {
	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".alethia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ALETHIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig overlays config-file values onto the defaults. Flags are
// applied afterwards by each command.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
