package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/database"
	"github.com/adrewards/backend/internal/logger"
	"github.com/adrewards/backend/internal/services"
	"github.com/adrewards/backend/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Operator session state, populated by openLedger before each command
var (
	cfgFile string
	log     *zap.Logger
	db      *sql.DB
	ledger  store.Store
	admin   *services.AdminService
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the ad rewards ledger",
	Long: `ledgerctl runs maintenance tasks against the ad rewards database:
schema migration, demo seeding, the daily reward reset and account inspection.
It reads the same .env / environment configuration as the API server.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openLedger,
	PersistentPostRunE: closeLedger,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_FILE"), "Path to the .env config file")
}

func openLedger(cmd *cobra.Command, args []string) error {
	if err := config.Init(cfgFile); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log = logger.Must(viper.GetString("app.env"))

	dbConfig := database.GetConfig()
	if dbConfig.Driver == "memory" {
		return fmt.Errorf("ledgerctl needs a persistent database; set DATABASE_DRIVER to postgres or sqlite")
	}

	var err error
	db, err = database.Open(dbConfig, log)
	if err != nil {
		return err
	}
	ledger = store.NewSQLStore(db, dbConfig.Driver)
	admin = services.NewAdminService(ledger, services.NewAuditLogger(log),
		services.NewMetrics(prometheus.NewRegistry()), log)
	return nil
}

func closeLedger(cmd *cobra.Command, args []string) error {
	if log != nil {
		_ = log.Sync()
	}
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
