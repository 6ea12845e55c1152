package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/studymall/studymall/conf"
	"github.com/studymall/studymall/models"
)

var migrateCmd = cobra.Command{
	Use:  "migrate",
	Long: "Migrate database structures. This will create new tables and add missing columns and indexes.",
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfig(cmd, migrate)
	},
}

func migrate(config *conf.Configuration) {
	// Connect runs migrations itself when automigrate is on; this
	// command exists for setups that disable it.
	config.DB.Automigrate = false
	db, err := models.Connect(config)
	if err != nil {
		logrus.Fatalf("Error opening database: %+v", err)
	}
	defer db.Close()

	if err := models.Migrate(db); err != nil {
		logrus.Fatalf("Error migrating database: %+v", err)
	}
	logrus.Info("StudyMall migrations applied")
}
