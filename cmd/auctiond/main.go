package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/internal/httpapi"
	"github.com/MarkoPoloResearchLab/auctionhouse/internal/oplog"
	"github.com/MarkoPoloResearchLab/auctionhouse/internal/reconcile"
	"github.com/MarkoPoloResearchLab/auctionhouse/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/auctionhouse/internal/sweeper"
	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL    = "database-url"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagSweepInterval  = "sweep-interval"
	flagListingFee     = "listing-fee"

	configKeyDatabaseURL    = "database_url"
	configKeyListenAddr     = "listen_addr"
	configKeyAllowedOrigins = "allowed_origins"
	configKeySweepInterval  = "sweep_interval"
	configKeyListingFee     = "listing_fee"

	defaultDatabaseURL    = "sqlite:///tmp/auctionhouse.db"
	defaultListenAddr     = ":8080"
	defaultSweepInterval  = 15 * time.Second
	defaultListingFee     = int64(0)
	reconcileInterval     = 5 * time.Minute
	driverNamePostgres    = "postgres"
	driverNameSQLite      = "sqlite"
	defaultSQLiteFileName = "auctionhouse.db"
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	AllowedOrigins string
	SweepInterval  time.Duration
	ListingFee     int64
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "auctiond",
		Short:         "Auction marketplace HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or SQLite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "Comma-delimited CORS origins")
	cmd.Flags().Duration(flagSweepInterval, defaultSweepInterval, "Settlement sweep interval")
	cmd.Flags().Int64(flagListingFee, defaultListingFee, "Points charged when a listing is activated (0 disables the fee)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:    "DATABASE_URL",
		configKeyListenAddr:     "HTTP_LISTEN_ADDR",
		configKeyAllowedOrigins: "ALLOWED_ORIGINS",
		configKeySweepInterval:  "SWEEP_INTERVAL",
		configKeyListingFee:     "LISTING_FEE",
	}
	for configKey, envName := range bindings {
		if err := viper.BindEnv(configKey, envName); err != nil {
			return err
		}
	}

	flagNames := map[string]string{
		configKeyDatabaseURL:    flagDatabaseURL,
		configKeyListenAddr:     flagListenAddr,
		configKeyAllowedOrigins: flagAllowedOrigins,
		configKeySweepInterval:  flagSweepInterval,
		configKeyListingFee:     flagListingFee,
	}
	for configKey, flagName := range flagNames {
		if err := viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.SweepInterval = viper.GetDuration(configKeySweepInterval)
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	cfg.ListingFee = viper.GetInt64(configKeyListingFee)
	if cfg.ListingFee < 0 {
		return fmt.Errorf("listing fee must not be negative")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	store := gormstore.New(gormDB)
	if err := prepareSchema(store, driver); err != nil {
		return err
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	serviceOptions := []auction.ServiceOption{
		auction.WithOperationLogger(oplog.New(logger)),
	}
	if cfg.ListingFee > 0 {
		listingFee, feeErr := auction.NewPositivePoints(cfg.ListingFee)
		if feeErr != nil {
			return fmt.Errorf("listing fee: %w", feeErr)
		}
		serviceOptions = append(serviceOptions, auction.WithListingFee(listingFee))
	}
	auctionService, err := auction.NewService(store, clock, serviceOptions...)
	if err != nil {
		return fmt.Errorf("auction service init: %w", err)
	}

	go sweeper.New(auctionService, cfg.SweepInterval, logger).Run(ctx)

	if driver == driverNamePostgres {
		pool, poolErr := pgxpool.New(ctx, cfg.DatabaseURL)
		if poolErr != nil {
			return fmt.Errorf("reconcile pool: %w", poolErr)
		}
		defer pool.Close()
		go reconcile.New(pool, logger).Run(ctx, reconcileInterval)
	}

	apiConfig := httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
	}
	return httpapi.Run(ctx, apiConfig, auctionService, logger)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	gormConfig := &gorm.Config{}
	switch driver {
	case driverNamePostgres:
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case driverNameSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverNamePostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLiteFileName
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return driverNameSQLite, sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return driverNameSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(store *gormstore.Store, driver string) error {
	if driver != driverNameSQLite {
		return nil
	}
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
