package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	adminchat "github.com/vendora-hq/adminchat-go"
)

// ============================================================================
// Flag variables
// ============================================================================

var (
	// banners list
	bannersListJSON bool

	// subscriptions list
	subscriptionsListJSON bool

	// staff list
	staffListJSON bool

	// vendors list
	vendorsListStatus string
	vendorsListPage   int
	vendorsListLimit  int
	vendorsListJSON   bool
)

// ============================================================================
// banners (parent command)
// ============================================================================

var bannersCmd = &cobra.Command{
	Use:   "banners",
	Short: "Manage CMS banners",
}

// ============================================================================
// banners list
// ============================================================================

var bannersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banners",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		banners, err := client.Banners().List(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if bannersListJSON {
			b, _ := json.MarshalIndent(banners, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		if len(banners) == 0 {
			fmt.Println("No banners found.")
			return nil
		}

		for _, b := range banners {
			active := "inactive"
			if b.IsActive {
				active = "active"
			}
			fmt.Printf("  %s: %s (%s, %s)\n", b.ID, b.Title, b.Type, active)
		}
		return nil
	},
}

// ============================================================================
// subscriptions (parent command)
// ============================================================================

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "Manage subscription plans",
}

// ============================================================================
// subscriptions list
// ============================================================================

var subscriptionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscription plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		plans, err := client.Subscriptions().List(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if subscriptionsListJSON {
			b, _ := json.MarshalIndent(plans, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		if len(plans) == 0 {
			fmt.Println("No subscription plans found.")
			return nil
		}

		for _, p := range plans {
			fmt.Printf("  %s: %s - %.2f / %d days\n", p.ID, p.Name, p.Price, p.DurationDays)
		}
		return nil
	},
}

// ============================================================================
// staff (parent command)
// ============================================================================

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage store staff",
}

// ============================================================================
// staff list
// ============================================================================

var staffListCmd = &cobra.Command{
	Use:   "list <store-id>",
	Short: "List staff members of a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeID := args[0]
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		members, err := client.Staff().List(ctx, storeID)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if staffListJSON {
			b, _ := json.MarshalIndent(members, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		if len(members) == 0 {
			fmt.Println("No staff members found.")
			return nil
		}

		for _, m := range members {
			fmt.Printf("  %s: %s <%s> - %s\n", m.ID, m.Name, m.Email, m.Role)
		}
		return nil
	},
}

// ============================================================================
// vendors (parent command)
// ============================================================================

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage vendor requests",
	Long:  "List pending vendor requests and approve or reject them.",
}

// ============================================================================
// vendors list
// ============================================================================

var vendorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendor requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		page, err := client.Vendors().List(ctx, vendorsListPage, vendorsListLimit, vendorsListStatus)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if vendorsListJSON {
			b, _ := json.MarshalIndent(page, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		if len(page.Vendors) == 0 {
			fmt.Println("No vendor requests found.")
			return nil
		}

		for _, v := range page.Vendors {
			fmt.Printf("  %s: %s <%s> - %s\n", v.ID, v.StoreName, v.Email, v.Status)
		}
		fmt.Printf("Total: %d\n", page.Total)
		return nil
	},
}

// ============================================================================
// vendors approve / reject
// ============================================================================

var vendorsApproveCmd = &cobra.Command{
	Use:   "approve <vendor-id>",
	Short: "Approve a vendor request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateVendorStatus(args[0], adminchat.VendorApproved)
	},
}

var vendorsRejectCmd = &cobra.Command{
	Use:   "reject <vendor-id>",
	Short: "Reject a vendor request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateVendorStatus(args[0], adminchat.VendorRejected)
	},
}

func updateVendorStatus(vendorID, status string) error {
	client, _ := getClient()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := client.Vendors().UpdateStatus(ctx, vendorID, status); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	fmt.Printf("Vendor %s marked %s.\n", vendorID, status)
	return nil
}

// ============================================================================
// Registration
// ============================================================================

func init() {
	// banners list
	bannersListCmd.Flags().BoolVar(&bannersListJSON, "json", false, "Output raw JSON")

	// subscriptions list
	subscriptionsListCmd.Flags().BoolVar(&subscriptionsListJSON, "json", false, "Output raw JSON")

	// staff list
	staffListCmd.Flags().BoolVar(&staffListJSON, "json", false, "Output raw JSON")

	// vendors list
	vendorsListCmd.Flags().StringVar(&vendorsListStatus, "status", "", "Filter by status (pending, approved, rejected)")
	vendorsListCmd.Flags().IntVar(&vendorsListPage, "page", 1, "Page number")
	vendorsListCmd.Flags().IntVarP(&vendorsListLimit, "limit", "n", 20, "Results per page")
	vendorsListCmd.Flags().BoolVar(&vendorsListJSON, "json", false, "Output raw JSON")

	// Wire up sub-commands.
	bannersCmd.AddCommand(bannersListCmd)
	subscriptionsCmd.AddCommand(subscriptionsListCmd)
	staffCmd.AddCommand(staffListCmd)
	vendorsCmd.AddCommand(vendorsListCmd)
	vendorsCmd.AddCommand(vendorsApproveCmd)
	vendorsCmd.AddCommand(vendorsRejectCmd)

	// Register under root.
	rootCmd.AddCommand(bannersCmd)
	rootCmd.AddCommand(subscriptionsCmd)
	rootCmd.AddCommand(staffCmd)
	rootCmd.AddCommand(vendorsCmd)
}
