package main

import (
	"fmt"
	"runtime"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"dbmeta/internal/db"
	"dbmeta/pkg/config"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the registered database dialects",
	RunE: func(cmd *cobra.Command, args []string) error {
		var items []pterm.BulletListItem
		for _, d := range db.RegisteredDialects() {
			items = append(items, pterm.BulletListItem{Level: 0, Text: d})
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, the config file and DBMETA_* environment overrides, with secrets masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Dump(appCfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dbmeta version: %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildDate)
		fmt.Printf("Go version: %s\n", runtime.Version())
	},
}
