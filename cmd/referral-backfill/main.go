// Command referral-backfill imports historical referrals from a CSV export
// and re-applies the external-attribution rule to every lead it touched.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finders_crm_backend/internal/adapters"
	identityrepo "finders_crm_backend/internal/identity/repository"
	leadsrepo "finders_crm_backend/internal/leads/repository"
	referralsrepo "finders_crm_backend/internal/referrals/repository"
	referralsservice "finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/internal/scheduler"
	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/db"
	"finders_crm_backend/platform/logger"

	"github.com/spf13/cobra"
)

var (
	filePath    string
	dryRun      bool
	inline      bool
	concurrency int
	region      string
)

var rootCmd = &cobra.Command{
	Use:   "referral-backfill --file referrals.csv",
	Short: "Import historical referrals and re-run the external attribution rule",
	Long: `referral-backfill reads a CSV with the columns

  phone,agent,referral_date[,type]

where agent is an email address or a display name. Each row is matched to a
lead by its E.164 phone number and appended to that lead's referral ledger.
Afterwards the external attribution rule is re-applied once per touched lead,
through the job queue when REDIS_URL is set, inline otherwise.`,
	SilenceUsage: true,
	RunE:         runBackfill,
}

func init() {
	rootCmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV file to import")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve rows without writing anything")
	rootCmd.Flags().BoolVar(&inline, "inline", false, "Apply the external rule in-process even when a queue is configured")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Leads processed in parallel when applying the rule inline")
	rootCmd.Flags().StringVar(&region, "region", "", "Default phone region (defaults to DEFAULT_PHONE_REGION)")
	_ = rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithOptions(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if region == "" {
		region = cfg.GetDefaultPhoneRegion()
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	rows, invalid, err := parseRows(f, region)
	if err != nil {
		return err
	}
	for _, rowErr := range invalid {
		log.Warn("invalid row", "line", rowErr.Line, "error", rowErr.Err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	users := identityrepo.New(pool)
	leads := leadsrepo.New(pool)
	svc := referralsservice.New(
		referralsrepo.New(pool),
		adapters.NewReferralLeadReader(leads),
		adapters.NewIdentityUserDirectory(users),
		nil,
		log,
	)

	im := &importer{
		leads:       leads,
		agents:      users,
		referrals:   svc,
		concurrency: concurrency,
		dryRun:      dryRun,
		log:         log,
	}

	if !inline && cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("init job queue: %w", err)
		}
		defer func() { _ = client.Close() }()
		im.queue = client
	}

	sum, err := im.run(ctx, rows)
	log.Info("referral backfill finished",
		"rows", sum.Rows,
		"invalid", len(invalid),
		"created", sum.Created,
		"skipped", sum.Skipped,
		"leads", sum.LeadsTouched,
		"enqueued", sum.Enqueued,
		"already_queued", sum.AlreadyQueued,
		"markedExternal", sum.MarkedExternal,
		"dryRun", dryRun,
	)
	return err
}

