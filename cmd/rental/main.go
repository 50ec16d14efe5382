/*
main.go - Application entry point

PURPOSE:
  The `rental` command. Serves the HTTP API, prints a booking's billing
  schedule, and loads demo data.

COMMANDS:
  serve                 HTTP server and lease scheduler
  schedule <booking>    Print the payment schedule of one booking
  seed [scenario]       Reset the database and load a demo scenario

CONFIGURATION:
  Settings come from RENTAL_* environment variables (see config/config.go),
  with a .env file in the working directory loaded first. Flags override
  the environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the lease scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with in-memory database and demo data
  rental serve --db=":memory:" --seed=demo --admin

  # Schedule of 2025 as if today were the end of June
  RENTAL_BILLING_AS_OF=2025-06-30 rental schedule 4f1c... --year=2025

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Lease scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/warp/rental-engine/api"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/config"
	"github.com/warp/rental-engine/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "rental",
		Short:        "Property rental service with monthly billing",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path (":memory:" for in-memory)`)
	rootCmd.PersistentFlags().Var(dateFlag{&cfg.BillingAsOf}, "as-of", "Billing reference date, YYYY-MM-DD (default: today)")

	rootCmd.AddCommand(
		serveCmd(&cfg),
		scheduleCmd(&cfg),
		seedCmd(&cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serveCmd(cfg *config.Config) *cobra.Command {
	var (
		origins  []string
		scenario string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the lease scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("cors") {
				cfg.CORSOrigins = origins
			}
			return serve(*cfg, scenario)
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	cmd.Flags().StringSliceVar(&origins, "cors", cfg.CORSOrigins, "Allowed CORS origins")
	cmd.Flags().DurationVar(&cfg.LeaseInterval, "lease-interval", cfg.LeaseInterval, "How often ended leases are released")
	cmd.Flags().BoolVar(&cfg.SchedulerEnabled, "scheduler", cfg.SchedulerEnabled, "Run the lease scheduler")
	cmd.Flags().StringVar(&scenario, "seed", "", "Load a demo scenario on startup")
	cmd.Flags().BoolVar(&cfg.AdminEnabled, "admin", cfg.AdminEnabled, "Expose /api/admin endpoints that reset and seed the database")
	return cmd
}

func serve(cfg config.Config, scenario string) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if scenario != "" {
		if err := api.LoadScenario(context.Background(), store, scenario, cfg.Now()); err != nil {
			return fmt.Errorf("load scenario %s: %w", scenario, err)
		}
		log.Printf("Loaded scenario %q", scenario)
	}

	calc := cfg.Calculator()
	handler := api.NewHandler(store, calc)
	handler.Now = cfg.Now
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		EnableAdmin:    cfg.AdminEnabled,
	})

	scheduler := api.NewLeaseScheduler(store, calc)
	scheduler.CheckInterval = cfg.LeaseInterval
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		if !cfg.BillingAsOf.IsZero() {
			log.Printf("Billing reference date pinned to %s", cfg.BillingAsOf)
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// =============================================================================
// SCHEDULE
// =============================================================================

func scheduleCmd(cfg *config.Config) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "schedule <booking-id>",
		Short: "Print the payment schedule of a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			booking, err := store.GetBooking(ctx, args[0])
			if err != nil {
				return err
			}
			prop, err := store.GetProperty(ctx, booking.PropertyID)
			if err != nil {
				return err
			}

			result := booking.Schedule(cfg.Calculator(), prop, year)
			return printSchedule(cmd, booking.Start, booking.End, result)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Calendar year to show (default: the booking's start year)")
	return cmd
}

func printSchedule(cmd *cobra.Command, start, end billing.Date, result billing.Result) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stay %s to %s, year %d of %v\n\n", start, end, result.SelectedYear, result.Years)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tPERIOD\tDATE\tAMOUNT\tSTATUS")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%s %d\t%s - %s\t%s\t%s\t%s\n",
			e.Label(), e.Year, e.PeriodStart, e.PeriodEnd, e.Date, e.Amount.StringFixed(2), e.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nPaid: %s  Pending: %s\n", result.TotalPaid.StringFixed(2), result.TotalPending.StringFixed(2))
	return nil
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [scenario]",
		Short: "Reset the database and load a demo scenario (default: demo)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := "demo"
			if len(args) == 1 {
				scenario = args[0]
			}

			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer store.Close()

			if err := api.LoadScenario(cmd.Context(), store, scenario, cfg.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded scenario %q into %s (password %q)\n", scenario, cfg.DBPath, api.DemoPassword)
			return nil
		},
	}
}

// dateFlag parses a YYYY-MM-DD flag into a billing.Date.
type dateFlag struct{ d *billing.Date }

func (f dateFlag) String() string {
	if f.d == nil || f.d.IsZero() {
		return ""
	}
	return f.d.String()
}

func (f dateFlag) Set(s string) error {
	d, err := billing.ParseDate(s)
	if err != nil {
		return err
	}
	*f.d = d
	return nil
}

func (f dateFlag) Type() string { return "date" }
