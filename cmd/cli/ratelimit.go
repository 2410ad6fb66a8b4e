package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Manage rate limit windows",
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the current window of one client in one tier",
	Example: `  sixcities-admin ratelimit reset --tier auth --identity ip:203.0.113.7
  sixcities-admin ratelimit reset --tier user_api --identity user:0b6c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")
		identity, _ := cmd.Flags().GetString("identity")

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

		limiter, err := ratelimit.NewLimiter(ratelimit.ConfigFromSettings(&cfg.RateLimit), store, log, nil)
		if err != nil {
			return err
		}
		return resetWindow(ctx, cmd.OutOrStdout(), limiter, tier, identity)
	},
}

func init() {
	rateLimitResetCmd.Flags().String("tier", "", "tier name: auth, upload, user_api or public")
	rateLimitResetCmd.Flags().String("identity", "", "client identity, ip:<addr> or user:<id>")
	_ = rateLimitResetCmd.MarkFlagRequired("tier")
	_ = rateLimitResetCmd.MarkFlagRequired("identity")

	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

func resetWindow(ctx context.Context, w io.Writer, limiter *ratelimit.Limiter, tier, identity string) error {
	t := ratelimit.Tier(tier)
	if !slices.Contains(constants.RateLimitTiers, t) {
		return errors.ErrValidation.WithMessage("unknown tier %q", tier)
	}
	if identity == "" {
		return errors.ErrValidation.WithMessage("identity is required")
	}
	if err := limiter.Reset(ctx, t, identity); err != nil {
		return err
	}
	fmt.Fprintf(w, "reset %s\n", limiter.Key(t, identity))
	return nil
}
