package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	hsclient "github.com/Sternrassler/hubspot-lists-client/pkg/client"
	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
	"github.com/Sternrassler/hubspot-lists-client/pkg/logging"
)

// rootOptions are the connection settings shared by every subcommand.
type rootOptions struct {
	apiKey   string
	baseURL  string
	redisURL string
	logLevel string
	pretty   bool
	timeout  time.Duration

	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "hubspot-lists",
		Short:         "Manage HubSpot contact lists",
		Long:          "Read and modify HubSpot contact-list membership, or run an HTTP proxy exposing the same operations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = logging.Setup(logging.Config{
				Level:  logging.LogLevel(opts.logLevel),
				Pretty: opts.pretty,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiKey, "api-key", getEnv("HUBSPOT_API_KEY", ""), "HubSpot private app token (env HUBSPOT_API_KEY)")
	flags.StringVar(&opts.baseURL, "base-url", getEnv("HUBSPOT_BASE_URL", lists.DefaultBaseURL), "HubSpot API host (env HUBSPOT_BASE_URL)")
	flags.StringVar(&opts.redisURL, "redis-url", getEnv("REDIS_URL", ""), "Redis address or redis:// URL for caching and shared rate limits (env REDIS_URL)")
	flags.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", string(logging.LevelWarn)), "Log level: debug, info, warn, error, disabled (env LOG_LEVEL)")
	flags.BoolVar(&opts.pretty, "pretty", false, "Human-readable log output")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout of a single HTTP attempt")

	rootCmd.AddCommand(newGetCommand(opts))
	rootCmd.AddCommand(newBatchCommand(opts, lists.ActionAddBatch))
	rootCmd.AddCommand(newBatchCommand(opts, lists.ActionRemoveBatch))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// connectRedis returns nil when no Redis is configured.
func (o *rootOptions) connectRedis(ctx context.Context) (*redis.Client, error) {
	if o.redisURL == "" {
		return nil, nil
	}

	var redisOpts *redis.Options
	if strings.Contains(o.redisURL, "://") {
		parsed, err := redis.ParseURL(o.redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisOpts = parsed
	} else {
		redisOpts = &redis.Options{Addr: o.redisURL}
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
	}

	o.logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
	return redisClient, nil
}

// newClient wires the transport and the lists client. The returned cleanup
// closes everything that was opened.
func (o *rootOptions) newClient(ctx context.Context) (*lists.Client, *redis.Client, func(), error) {
	if o.apiKey == "" {
		return nil, nil, nil, fmt.Errorf("api key is required (--api-key or HUBSPOT_API_KEY)")
	}

	o.logger.Debug().
		Str("credential", logging.MaskCredential(o.apiKey)).
		Str("base_url", o.baseURL).
		Msg("Creating HubSpot client")

	redisClient, err := o.connectRedis(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := hsclient.DefaultConfig(o.apiKey)
	cfg.Redis = redisClient
	cfg.Timeout = o.timeout
	cfg.Logger = &o.logger

	transport, err := hsclient.New(cfg)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, nil, fmt.Errorf("create transport: %w", err)
	}

	cleanup := func() {
		transport.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}

	c, err := lists.New(lists.Config{
		BaseURL:   o.baseURL,
		Transport: transport,
		Logger:    &o.logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return c, redisClient, cleanup, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
