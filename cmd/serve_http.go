package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/lukman83/affiliate-gateway/mcp"
)

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start MCP HTTP server",
	Long:  "Start the MCP server over HTTP for remote access, with /healthz and /metrics.",
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	port := cfg.HTTPPort
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	a, err := newApp(appOptions{store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.APIKey == "" {
		a.logger.Warn("AFFILIATE_API_KEY is not set; /mcp is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%s", port)
	a.logger.Info("starting", zap.String("env", cfg.Env), zap.String("db", cfg.DBPath))
	return mcpserver.NewServer(a.catalog, a.store, a.logger).ServeHTTP(ctx, addr, cfg.APIKey, a.store.Ping)
}
