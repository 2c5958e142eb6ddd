package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/model"
)

func promotionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "promotions",
		Aliases: []string{"promos"},
		Short:   "Manage saved promotions",
		Long:    `List, add, and delete the promotions saved for a user.`,
	}

	cmd.AddCommand(promotionsListCmd())
	cmd.AddCommand(promotionsAddCmd())
	cmd.AddCommand(promotionsDeleteCmd())

	return cmd
}

func promotionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved promotions",
		RunE:  runPromotionsList,
	}

	cmd.Flags().String("category", "", "Only show this category")

	return cmd
}

func runPromotionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	category, _ := cmd.Flags().GetString("category")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	promotions, err := store.ListPromotions(ctx, config.UserID())
	if err != nil {
		return fmt.Errorf("failed to list promotions: %w", err)
	}

	if category != "" {
		want := model.ParseCategory(category)
		kept := promotions[:0]
		for _, p := range promotions {
			if p.Category == want {
				kept = append(kept, p)
			}
		}
		promotions = kept
	}

	if len(promotions) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No promotions yet. Run 'coupn ingest' to import some.")
		return nil
	}

	renderPromotions(cmd.OutOrStdout(), promotions)
	return nil
}

func promotionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a promotion",
		Long: `Save a promotion by hand. A promotion with the same company and message
replaces the existing one.`,
		Example: `  coupn promotions add --company "Domino's" --message "BOGO pizza" --category dining --code BOGO --expires 2025-06-30`,
		RunE:    runPromotionsAdd,
	}

	cmd.Flags().String("company", "", "Company offering the promotion (required)")
	cmd.Flags().String("message", "", "Promotion text (required)")
	cmd.Flags().String("category", string(model.CategoryMisc), "Category: "+categoryNames())
	cmd.Flags().String("code", "", "Promo code")
	cmd.Flags().String("expires", "", "Expiration date (YYYY-MM-DD)")
	cmd.Flags().String("link", "", "Link to the offer")
	cmd.Flags().String("barcode", "", "Barcode value")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runPromotionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	company, _ := flags.GetString("company")
	message, _ := flags.GetString("message")
	category, _ := flags.GetString("category")
	code, _ := flags.GetString("code")
	expires, _ := flags.GetString("expires")
	link, _ := flags.GetString("link")
	barcode, _ := flags.GetString("barcode")

	expiration, err := model.ParseDate(expires)
	if err != nil {
		return err
	}

	userID := config.UserID()
	promotion := model.NormalizePromotion(model.Promotion{
		Company:        company,
		Message:        message,
		Category:       model.Category(category),
		Code:           code,
		ExpirationDate: expiration,
		Link:           link,
		Barcode:        barcode,
		UserID:         userID,
	})
	if promotion.Company == "" || promotion.Message == "" {
		return fmt.Errorf("company and message cannot be blank")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.UpsertPromotions(ctx, userID, []model.Promotion{promotion}); err != nil {
		return fmt.Errorf("failed to save promotion: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", promotion.Company, promotion.Message)
	return nil
}

func promotionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a promotion",
		RunE:  runPromotionsDelete,
	}

	cmd.Flags().String("company", "", "Company of the promotion (required)")
	cmd.Flags().String("message", "", "Exact promotion text (required)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runPromotionsDelete(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	company, _ := cmd.Flags().GetString("company")
	message, _ := cmd.Flags().GetString("message")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	key := model.PromotionKey{Company: strings.TrimSpace(company), Message: strings.TrimSpace(message)}
	if err := store.DeletePromotion(ctx, config.UserID(), key); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("promotion not found: %s: %s", key.Company, key.Message)
		}
		return fmt.Errorf("failed to delete promotion: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", key.Company, key.Message)
	return nil
}

func categoryNames() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
