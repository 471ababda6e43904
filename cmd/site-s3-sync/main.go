package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/site-s3-sync/internal/runner"
	"github.com/yuya-takeyama/site-s3-sync/pkg/config"
	"github.com/yuya-takeyama/site-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/site-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/site-s3-sync/pkg/resolver"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	configFile     string
	stage          string
	bucket         string
	stackName      string
	region         string
	profile        string
	endpoint       string
	concurrency    int
	quiet          bool
	verbose        bool
	dryRun         bool
	planJSONFile   string
	resultJSONFile string
)

type phase func(o *syncer.Orchestrator, ctx context.Context, sites []config.Site) (*syncer.Report, error)

func main() {
	rootCmd := &cobra.Command{
		Use:   "site-s3-sync",
		Short: "Sync local site directories to S3 bucket prefixes",
		Long: `site-s3-sync uploads local directories to S3 prefixes with per-file
attributes from glob rules, rewrites object metadata in place, and merges
bucket tags without touching tags managed elsewhere.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "site-s3-sync.yml", "Path to the site configuration file")
	flags.StringVar(&stage, "stage", "", "Deployment environment, compared with OnlyForEnv rules")
	flags.StringVar(&bucket, "bucket", "", "Only process sites resolving to this bucket")
	flags.StringVar(&stackName, "stack-name", "", "CloudFormation stack used to resolve bucketNameKey")
	flags.StringVar(&region, "region", "", "AWS region (uses default if not specified)")
	flags.StringVar(&profile, "profile", "", "AWS profile to use")
	flags.StringVar(&endpoint, "endpoint", "", "Custom S3 endpoint for S3-compatible stores")
	flags.IntVar(&concurrency, "concurrency", 0, "Number of concurrent operations per site")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log skipped files and debug details")
	flags.BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	flags.StringVar(&planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Upload changed files and delete removed ones",
			Args:  cobra.NoArgs,
			RunE:  phaseCommand("sync", (*syncer.Orchestrator).Sync),
		},
		&cobra.Command{
			Use:   "sync-metadata",
			Short: "Rewrite object attributes in place without uploading",
			Args:  cobra.NoArgs,
			RunE:  phaseCommand("sync-metadata", (*syncer.Orchestrator).SyncMetadata),
		},
		&cobra.Command{
			Use:   "sync-tags",
			Short: "Merge bucketTags into each bucket's tag set",
			Args:  cobra.NoArgs,
			RunE:  phaseCommand("sync-tags", (*syncer.Orchestrator).SyncTags),
		},
		&cobra.Command{
			Use:     "remove",
			Aliases: []string{"clear"},
			Short:   "Delete every object under the configured prefixes",
			Args:    cobra.NoArgs,
			RunE:    phaseCommand("remove", (*syncer.Orchestrator).Remove),
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func phaseCommand(name string, fn phase) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return run(cmd, name, fn)
	}
}

func run(cmd *cobra.Command, name string, fn phase) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	servicePath, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return fmt.Errorf("failed to resolve service path: %w", err)
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, s3client.WithEndpoint(cfg.Endpoint))
	}
	client := s3client.NewAWSClient(awsCfg, s3Opts...)

	var outputs resolver.StackOutputResolver
	if cfg.StackName != "" {
		outputs = resolver.NewStackOutputs(cloudformation.NewFromConfig(awsCfg), cfg.StackName)
	}

	log := logger.New(os.Stdout, verbose, quiet, dryRun)
	results := &resultCollector{}

	o := syncer.New(client, resolver.NewBucketNameResolver(outputs), runner.NewShell(), log,
		syncer.InvocationContext{
			Env:         cfg.Stage,
			Bucket:      bucket,
			ServicePath: servicePath,
		},
		syncer.Options{
			Concurrency: cfg.Concurrency,
			DryRun:      dryRun,
			Progress:    results.add,
		},
	)

	report, runErr := fn(o, ctx, cfg.Sites)
	if report == nil {
		return runErr
	}

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if planJSONFile != "" {
		if err := writePlanResult(planJSONFile, report.Plans); err != nil {
			errs = append(errs, fmt.Errorf("failed to write plan JSON: %w", err))
		}
	}
	if resultJSONFile != "" && !dryRun {
		if err := writeSyncResult(resultJSONFile, results.list()); err != nil {
			errs = append(errs, fmt.Errorf("failed to write result JSON: %w", err))
		}
	}

	if !quiet || runErr != nil {
		logger.PrintSummary(os.Stdout, name, report.Sites, time.Since(start))
	}
	return errors.Join(errs...)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("stage") {
		cfg.Stage = stage
	}
	if flags.Changed("stack-name") {
		cfg.StackName = stackName
	}
	if flags.Changed("region") {
		cfg.Region = region
	}
	if flags.Changed("profile") {
		cfg.Profile = profile
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("concurrency") && concurrency > 0 {
		cfg.Concurrency = concurrency
	}
}

type siteResult struct {
	site   string
	bucket string
	executor.Result
}

// resultCollector gathers executor results from every site pipeline.
type resultCollector struct {
	mu      sync.Mutex
	results []siteResult
}

func (c *resultCollector) add(site, bucket string, r executor.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, siteResult{site: site, bucket: bucket, Result: r})
}

func (c *resultCollector) list() []siteResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]siteResult(nil), c.results...)
}
