package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lukman83/affiliate-gateway/config"
	"github.com/lukman83/affiliate-gateway/internal/catalog"
	"github.com/lukman83/affiliate-gateway/internal/conversation"
	"github.com/lukman83/affiliate-gateway/internal/gateway"
	"github.com/lukman83/affiliate-gateway/internal/httputil"
	"github.com/lukman83/affiliate-gateway/internal/logger"
	"github.com/lukman83/affiliate-gateway/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "affiliate",
	Short: "Affiliate catalog gateway - CLI, chat and MCP server",
	Long:  "Search the affiliate catalog, generate promotion links and track clicks and favorites.",
	// Usage on every gateway error is noise.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Environment: development, production")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database")
	rootCmd.PersistentFlags().String("currency", "", "Target currency for prices")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy URL for gateway calls")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console, json")
}

func initConfig(cmd *cobra.Command) error {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Override from flags
	flags := map[string]*string{
		"env":        &cfg.Env,
		"db":         &cfg.DBPath,
		"currency":   &cfg.Currency,
		"proxy":      &cfg.ProxyURL,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	}
	for name, dst := range flags {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			*dst = v
		}
	}
	return cfg.Validate()
}

// app owns every long-lived component. It is built once per command and
// passed down explicitly.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	gateway *gateway.Client
	catalog *catalog.Service
	store   *store.Store
	redis   *redis.Client

	closeLog func()
}

type appOptions struct {
	store bool
	// quiet sends logs to stderr only at warn and above, for clean stdout output.
	quiet bool
}

func newApp(opts appOptions) (*app, error) {
	logCfg := logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"}
	if opts.quiet && logger.ParseLevel(cfg.LogLevel) < zap.WarnLevel {
		logCfg.Level = "warn"
	}
	log, closeLog, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)
	transport, err := httputil.NewLimitedTransport(limiter, cfg.ProxyURL)
	if err != nil {
		closeLog()
		return nil, err
	}

	client := gateway.NewClient(gateway.Config{
		Endpoint:   cfg.GatewayURL,
		AppKey:     cfg.AppKey,
		AppSecret:  cfg.AppSecret,
		HTTPClient: httputil.NewHTTPClient(transport),
		Logger:     log,
	})

	a := &app{
		cfg:      cfg,
		logger:   log,
		closeLog: closeLog,
		gateway:  client,
		catalog: catalog.NewService(client, catalog.Options{
			TrackingID:    cfg.TrackingID,
			Currency:      cfg.Currency,
			Language:      cfg.Language,
			MaxConcurrent: cfg.MaxConcurrent,
			// Paces SearchPages fan-out; the transport limiter still bounds every call.
			RateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
			Logger:      log,
		}),
	}

	if opts.store {
		st, err := store.Open(cfg.DBPath, log, logger.GormLevel(cfg.LogLevel))
		if err != nil {
			closeLog()
			return nil, err
		}
		a.store = st
	}
	return a, nil
}

// sessions returns the chat session store: redis when configured, memory otherwise.
func (a *app) sessions() conversation.SessionStore {
	if a.cfg.RedisAddr == "" {
		return conversation.NewMemorySessions()
	}
	a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
	return conversation.NewRedisSessions(a.redis, conversation.DefaultSessionTTL)
}

func (a *app) dispatcher() *conversation.Dispatcher {
	return conversation.NewDispatcher(a.catalog, a.store, conversation.Options{
		Sessions: a.sessions(),
		Logger:   a.logger,
	})
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	_ = a.logger.Sync()
	a.closeLog()
}

func requestTimeout() time.Duration {
	return 2 * httputil.DefaultTimeout
}
