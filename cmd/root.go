package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"db-refactor/internal/dialect"
	"db-refactor/internal/logger"
	"db-refactor/internal/store"
)

var (
	dsn        string
	DB         *sql.DB
	SchemaName string // Database name on MySQL, schema elsewhere
	cfgFile    string
	DriverName string
	Logger     *zap.Logger
	Store      *store.Store
)

var RootCmd = &cobra.Command{
	Use:   "db-refactor",
	Short: "Schema refactoring for live databases",
	Long: `
DB REFACTOR - move columns, with their data, between 1:1 associated tables.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var logCfg logger.Config
		if err := viper.UnmarshalKey("log", &logCfg); err != nil {
			return fmt.Errorf("failed to parse log config: %w", err)
		}
		Logger = logger.New(logCfg)

		config, err := resolveDBConfig()
		if err != nil {
			return err
		}
		DriverName = config.Driver

		DB, err = sql.Open(DriverName, config.DSN)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if err := DB.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		// Fetch current database/schema name for introspection
		SchemaName = config.Schema
		if SchemaName == "" && DriverName == "mysql" {
			if err := DB.QueryRowContext(cmd.Context(), "SELECT DATABASE()").Scan(&SchemaName); err != nil {
				return fmt.Errorf("failed to get database name: %w", err)
			}
			if SchemaName == "" {
				return fmt.Errorf("no database selected in DSN")
			}
		}

		d := dialect.GetDialect(DriverName)
		Store = store.New(DB, d, SchemaName, Logger)
		Logger.Debug("connected",
			zap.String("name", config.Name),
			zap.String("dialect", d.Name()),
			zap.String("schema", d.GetSchemaName(SchemaName)))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if Logger != nil {
			_ = Logger.Sync()
		}
		if DB != nil {
			return DB.Close()
		}
		return nil
	},
}

// resolveDBConfig prefers the active entry of "databases" and falls back to
// the --dsn and --driver flags.
func resolveDBConfig() (*DBConfig, error) {
	if active, err := GetActiveDBConfig(); err == nil {
		return active, nil
	} else if dsn == "" && viper.GetString("database.dsn") == "" {
		return nil, err
	}

	connStr := viper.GetString("database.dsn")
	driver := viper.GetString("database.driver")
	if driver == "" {
		driver = detectDriver(connStr)
	}
	return &DBConfig{
		Name:   "CLI",
		Driver: driver,
		DSN:    connStr,
		Schema: viper.GetString("database.schema"),
		Active: true,
	}, nil
}

func detectDriver(connStr string) string {
	switch {
	case strings.HasPrefix(connStr, "postgres") || strings.Contains(connStr, "sslmode"):
		return "postgres"
	case strings.HasPrefix(connStr, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(connStr, "oracle://"):
		return "oracle"
	case strings.HasPrefix(connStr, "file:") || strings.HasSuffix(connStr, ".db") || connStr == ":memory:":
		return "sqlite"
	default:
		return "mysql"
	}
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-refactor.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN), used when no database is active in config")
	RootCmd.PersistentFlags().String("driver", "", "database/sql driver for --dsn (mysql, postgres, sqlserver, oracle, sqlite)")
	RootCmd.PersistentFlags().String("schema", "", "schema to introspect (default: current database, public, dbo or main)")
	RootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("database.driver", RootCmd.PersistentFlags().Lookup("driver"))
	viper.BindPFlag("database.schema", RootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_days", 7)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-refactor")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DB_REFACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
