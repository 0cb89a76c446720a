package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "0.1.0" // set during build with -ldflags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "gobite",
	Short: "gobite answers whether a string appears as a full line in a text file",
	Long: `gobite is a TCP (optionally TLS) server that answers one question:
does a given string appear as a full line in a configured data file?

It runs in two modes: fast mode builds an in-memory index once at startup
and serves every query from it; reread mode re-scans the data file on
every query so edits to the file are visible immediately, at the cost of
not being cacheable.`,
	Version: version,
	RunE:    runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := NewLogger(config.LogLevel, config.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	server, err := NewServer(config, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build server")
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.WithError(err).Error("failed to start server")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
		server.Stop()
	case fatalErr := <-server.fatalCh:
		logger.WithError(fatalErr).Error("server failed at runtime, shutting down")
		server.Stop()
		os.Exit(2)
	}

	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		fmt.Println(config.String())
		fmt.Printf("data_path: %s\n", config.DataPath)
		fmt.Printf("reread_on_query: %t\n", config.RereadOnQuery)
		fmt.Printf("backlog: %d\n", config.Backlog)
		fmt.Printf("buffer_size: %d\n", config.BufferSize)
		fmt.Printf("max_query_bytes: %d\n", config.MaxQueryBytes)
		fmt.Printf("tls_cert: %s\n", config.TLSCert)
		fmt.Printf("tls_key: %s\n", config.TLSKey)
		fmt.Printf("tls_watch: %t\n", config.TLSWatch)
		fmt.Printf("requests_per_minute: %d\n", config.RequestsPerMinute)
		fmt.Printf("read_timeout: %v\n", config.ReadTimeout)
		fmt.Printf("write_timeout: %v\n", config.WriteTimeout)
		fmt.Printf("shutdown_grace: %v\n", config.ShutdownGrace)
		fmt.Printf("metrics_addr: %s\n", config.MetricsAddr)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gobite v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an INI config file")

	rootCmd.PersistentFlags().StringP("host", "H", "0.0.0.0", "host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 44445, "port to listen on")
	rootCmd.PersistentFlags().Int("backlog", 1024, "listen backlog")
	rootCmd.PersistentFlags().String("data-path", "./data.txt", "file whose lines form the membership set")
	rootCmd.PersistentFlags().Bool("reread-on-query", false, "re-scan data-path on every query instead of indexing it once")
	rootCmd.PersistentFlags().Int("max-workers", 5000, "maximum number of concurrently handled connections")
	rootCmd.PersistentFlags().Int("cache-capacity", 10000, "lookup cache entries; 0 disables the cache")
	rootCmd.PersistentFlags().Int("buffer-size", 1<<20, "read/write buffer size for sockets and file scans")
	rootCmd.PersistentFlags().Int("max-query-bytes", 1<<20, "hard upper bound on one request")
	rootCmd.PersistentFlags().Bool("tls-enabled", false, "serve TLS instead of plaintext TCP")
	rootCmd.PersistentFlags().String("tls-cert", "", "TLS certificate path")
	rootCmd.PersistentFlags().String("tls-key", "", "TLS key path")
	rootCmd.PersistentFlags().Bool("tls-watch", false, "hot-reload the TLS certificate/key on change")
	rootCmd.PersistentFlags().Bool("rate-limit-enabled", false, "enable per-IP sliding-window rate limiting")
	rootCmd.PersistentFlags().Int("requests-per-minute", 1000, "requests allowed per IP per 60-second window")
	rootCmd.PersistentFlags().Duration("read-timeout", 5*time.Second, "per-connection read deadline")
	rootCmd.PersistentFlags().Duration("write-timeout", 5*time.Second, "per-connection write deadline")
	rootCmd.PersistentFlags().Duration("shutdown-grace", 10*time.Second, "time to drain in-flight connections on shutdown")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("metrics-enabled", false, "expose a Prometheus /metrics endpoint")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9090", "bind address for the metrics endpoint")

	v := viper.GetViper()
	v.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	v.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	v.BindPFlag("backlog", rootCmd.PersistentFlags().Lookup("backlog"))
	v.BindPFlag("data_path", rootCmd.PersistentFlags().Lookup("data-path"))
	v.BindPFlag("reread_on_query", rootCmd.PersistentFlags().Lookup("reread-on-query"))
	v.BindPFlag("max_workers", rootCmd.PersistentFlags().Lookup("max-workers"))
	v.BindPFlag("cache_capacity", rootCmd.PersistentFlags().Lookup("cache-capacity"))
	v.BindPFlag("buffer_size", rootCmd.PersistentFlags().Lookup("buffer-size"))
	v.BindPFlag("max_query_bytes", rootCmd.PersistentFlags().Lookup("max-query-bytes"))
	v.BindPFlag("tls_enabled", rootCmd.PersistentFlags().Lookup("tls-enabled"))
	v.BindPFlag("tls_cert", rootCmd.PersistentFlags().Lookup("tls-cert"))
	v.BindPFlag("tls_key", rootCmd.PersistentFlags().Lookup("tls-key"))
	v.BindPFlag("tls_watch", rootCmd.PersistentFlags().Lookup("tls-watch"))
	v.BindPFlag("rate_limit_enabled", rootCmd.PersistentFlags().Lookup("rate-limit-enabled"))
	v.BindPFlag("requests_per_minute", rootCmd.PersistentFlags().Lookup("requests-per-minute"))
	v.BindPFlag("read_timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	v.BindPFlag("write_timeout", rootCmd.PersistentFlags().Lookup("write-timeout"))
	v.BindPFlag("shutdown_grace", rootCmd.PersistentFlags().Lookup("shutdown-grace"))
	v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	v.BindPFlag("metrics_enabled", rootCmd.PersistentFlags().Lookup("metrics-enabled"))
	v.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
