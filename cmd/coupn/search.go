package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/search"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the promotions relevant to a query",
		Long: `Search your promotions in plain language.

If the search fails, every promotion is shown rather than none.`,
		Example: `  coupn search "something for dinner tonight"
  coupn search --matcher keyword pizza`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().Bool("remote", false, "Use the coupn server")
	cmd.Flags().String("matcher", "", "Matcher to use (oracle, keyword)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	remote, _ := cmd.Flags().GetBool("remote")
	userID := config.UserID()
	if matcher, _ := cmd.Flags().GetString("matcher"); matcher != "" {
		viper.Set("search.matcher", matcher)
	}

	p, err := loadProviders(remote, userID)
	if err != nil {
		return err
	}

	promotions, err := loadPromotions(ctx, remote, userID)
	if err != nil {
		return err
	}
	state := app.NewState(userID)
	state.SetPromotions(promotions)

	ctrl := search.NewController(p.matcher, state, slog.Default())
	filter, err := ctrl.Search(ctx, joinArgs(args))
	if err != nil {
		slog.Warn("Search failed, showing all promotions", "error", err)
	}

	out := cmd.OutOrStdout()
	if filter.IsEmptyMatch() {
		_, _ = fmt.Fprintln(out, "No matching promotions")
		return nil
	}

	if explanation := ctrl.Explanation(); explanation != "" {
		_, _ = fmt.Fprintln(out, explanation)
	}
	renderPromotions(out, ctrl.Results())
	return nil
}
