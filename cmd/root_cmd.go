package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/studymall/studymall/conf"
	"github.com/studymall/studymall/models"
)

var configFile = ""

var rootCmd = cobra.Command{
	Use:  "studymall",
	Long: "An API for selling and delivering downloadable study materials.",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfig(cmd, serve)
	},
}

// RootCmd will add flags and subcommands to the different commands
func RootCmd() *cobra.Command {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "The configuration file")
	rootCmd.AddCommand(&serveCmd, &migrateCmd, &versionCmd)
	return &rootCmd
}

func execWithConfig(cmd *cobra.Command, fn func(config *conf.Configuration)) {
	config, err := conf.LoadConfig(configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %+v", err)
	}

	if config.DB.Namespace != "" {
		models.Namespace = config.DB.Namespace
	}
	fn(config)
}
