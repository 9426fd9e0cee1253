package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and initialise the configuration file",
		Long: `conceptmap reads ` + "`$XDG_CONFIG_HOME/conceptmap/config.toml`" + `, then applies
` + config.EnvPrefix + `* environment overrides, for example:

  ` + config.EnvPrefix + `LAYOUT_REPULSION=50000
  ` + config.EnvPrefix + `SOURCE_KIND=dir ` + config.EnvPrefix + `SOURCE_DIR=./maps
  ` + config.EnvPrefix + `SERVER_ADDR=:9000`,
		// path and init must work even when the file does not parse.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	cmd.AddCommand(
		configShowCmd(),
		configPathCmd(),
		configInitCmd(),
	)

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Path())
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := config.Save(config.Default()); err != nil {
					return err
				}
			} else if err := config.EnsureExists(); err != nil {
				return err
			}
			fmt.Printf("  %s %s\n", ui.StatusIcon(true), config.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
