// Command dropview-admin runs maintenance tasks against the DropView database.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"dropview/internal/config"
	"dropview/internal/database"
	"dropview/internal/jobs"
	"dropview/internal/middleware"
	"dropview/internal/repository"
	"dropview/internal/seed"
	"dropview/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// admin holds the connection shared by every subcommand.
type admin struct {
	cfg *config.Config
	db  *gorm.DB
}

func newRootCmd() *cobra.Command {
	a := &admin{}
	cmd := &cobra.Command{
		Use:           "dropview-admin",
		Short:         "Maintenance commands for the DropView database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	cmd.AddCommand(a.migrateCmd(), a.seedCmd(), a.reconcileCmd(), a.leaderboardCmd())
	return cmd
}

func (a *admin) open() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel, os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	a.cfg, a.db = cfg, db
	return nil
}

func (a *admin) close() error {
	if a.db == nil {
		return nil
	}
	return database.Close(a.db)
}

func (a *admin) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema migrated")
			return nil
		},
	}
}

func (a *admin) seedCmd() *cobra.Command {
	opts := seed.Options{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo members, posts and comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.BcryptCost = a.cfg.BcryptCost
			f, err := seed.NewFactory(a.db, opts)
			if err != nil {
				return err
			}
			sum, err := f.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded users=%d posts=%d comments=%d referrals=%d (password %q)\n",
				sum.Users, sum.Posts, sum.Comments, sum.Referrals, seed.DefaultPassword)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Users, "users", 20, "number of members to create")
	cmd.Flags().IntVar(&opts.Posts, "posts", 40, "number of posts to create")
	cmd.Flags().IntVar(&opts.Comments, "comments", 120, "number of comments to create")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().Float64Var(&opts.ReferralRate, "referral-rate", 0.3, "share of members referred by an earlier member")
	return cmd
}

func (a *admin) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-comments",
		Short: "Recount comments_count for every post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixed, err := jobs.ReconcileComments(cmd.Context(), repository.NewPostRepository(a.db), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d posts corrected\n", fixed)
			return nil
		},
	}
}

func (a *admin) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top referrers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			referrals := service.NewReferralService(repository.NewUserRepository(a.db), nil, a.cfg.FrontendURL)
			entries, err := referrals.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tNAME\tCODE\tREFERRALS")
			for i, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, e.Name, e.ReferralCode, e.ReferralsCount)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultLeaderboardSize, "number of entries (max 100)")
	return cmd
}
