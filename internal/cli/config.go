package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/alethia/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Alethia configuration",
	Long: `Manage Alethia configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (ALETHIA_*)
3. Config file (~/.alethia/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Print the configuration after merging defaults, the config file, environment variables and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		rendered, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(rendered))

		fmt.Println()
		fmt.Println("Precedence: flags > environment (ALETHIA_*, OPENAI_API_KEY, ANTHROPIC_API_KEY) > config file > defaults")
		return nil
	},
}

const configFileHeader = `# Alethia configuration.
# See https://github.com/ppiankov/alethia for full documentation.
#
# Precedence: CLI flags, then ALETHIA_* environment variables, then this
# file, then built-in defaults.

`

const configFileFooter = `
# API keys belong in environment variables, not in this file:
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434
`

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create ~/.alethia/config.yaml populated with the built-in defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}

		configDir := filepath.Join(home, ".alethia")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'alethia config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		rendered, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal defaults: %w", err)
		}

		var buf bytes.Buffer
		buf.WriteString(configFileHeader)
		buf.Write(rendered)
		buf.WriteString(configFileFooter)

		if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Println()
		fmt.Println("View it with 'alethia config show' or edit it directly.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
