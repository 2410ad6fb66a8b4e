package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/sixcities/internal/infrastructure/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear cached entities",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every key in the shared store, rate limit windows included",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, svc *cache.Service) error {
			return clearCache(ctx, cmd.OutOrStdout(), svc)
		})
	},
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict KEY...",
	Short: "Delete the given cache keys, e.g. cities:list or offers:id:<uuid>",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, svc *cache.Service) error {
			return evictKeys(ctx, cmd.OutOrStdout(), svc, args)
		})
	},
}

var cacheEvictListsCmd = &cobra.Command{
	Use:   "evict-offer-lists",
	Short: "Delete every cached offer list tracked in the offer registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, svc *cache.Service) error {
			return evictOfferLists(ctx, cmd.OutOrStdout(), svc)
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheEvictCmd, cacheEvictListsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func withCache(cmd *cobra.Command, fn func(ctx context.Context, svc *cache.Service) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	conn, store, err := connectStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, cache.NewService(store, log, nil))
}

func clearCache(ctx context.Context, w io.Writer, svc *cache.Service) error {
	if err := svc.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "shared store cleared")
	return nil
}

func evictKeys(ctx context.Context, w io.Writer, svc *cache.Service, keys []string) error {
	svc.Delete(ctx, keys...)
	fmt.Fprintf(w, "evicted %d key(s)\n", len(keys))
	return nil
}

func evictOfferLists(ctx context.Context, w io.Writer, svc *cache.Service) error {
	offers := cache.NewOfferCache(svc, 0, 0, 0)
	offers.InvalidateLists(ctx)
	fmt.Fprintf(w, "evicted offer lists tracked in %s\n", offers.Registry())
	return nil
}
