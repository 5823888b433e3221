package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zerocrash/internal/redisclient"
	"zerocrash/internal/storage"

	"github.com/spf13/cobra"
)

var errNoRedis = errors.New("redis.addr is not configured")

// pingCmd pings the configured Redis server.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and print PONG",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Redis.Addr == "" {
			return errNoRedis
		}

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := rdb.Ping(ctx).Result()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res)
		return nil
	},
}

var topQueriesN int

// topQueriesCmd lists the most searched queries recorded in Redis.
var topQueriesCmd = &cobra.Command{
	Use:   "top-queries",
	Short: "List the most frequent search queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Redis.Addr == "" {
			return errNoRedis
		}

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		store := storage.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		top, err := store.TopQueries(ctx, topQueriesN)
		if err != nil {
			return err
		}
		for _, q := range top {
			fmt.Fprintf(cmd.OutOrStdout(), "%6.0f  %s\n", q.Count, q.Query)
		}
		return nil
	},
}

func init() {
	topQueriesCmd.Flags().IntVar(&topQueriesN, "n", 10, "number of queries to list")
	redisCmd.AddCommand(pingCmd)
	redisCmd.AddCommand(topQueriesCmd)
}
