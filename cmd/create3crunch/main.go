package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Philogy/create3crunch/internal/config"
	logpkg "github.com/Philogy/create3crunch/internal/logger"
	minerpkg "github.com/Philogy/create3crunch/pkg/miner"
	"github.com/Philogy/create3crunch/pkg/reporter"
)

var cfg = config.NewConfig()

func main() {
	var rootCmd = &cobra.Command{
		Use:   "create3crunch",
		Short: "CREATE3 salt miner",
		Long: `Brute-force search for salts whose CREATE3-deployed contract address
matches the given patterns. Patterns cover all 40 nibbles with hex
literals, 'x' wildcards and [01x0]-style bit groups; literal letter case
is enforced against the EIP-55 checksum when --case-sensitive is set.`,
		RunE: runMiner,
	}

	rootCmd.Flags().StringVarP(&cfg.Factory, "factory", "f", config.DefaultFactory, "Address of the CREATE3 factory contract")
	rootCmd.Flags().StringVarP(&cfg.Owner, "owner", "o", "", "Owner / caller address (bound into the salt's first 20 bytes)")
	rootCmd.Flags().StringVarP(&cfg.InitCodeHash, "init-code-hash", "i", config.DefaultInitCodeHash, "Hash of the factory's deploy-proxy initcode")
	rootCmd.Flags().StringArrayVarP(&cfg.Patterns, "pattern", "p", nil, "Address pattern to match (repeatable)")
	rootCmd.Flags().BoolVarP(&cfg.CaseSensitive, "case-sensitive", "c", false, "Enforce checksum case of pattern letters")
	rootCmd.Flags().Uint64VarP(&cfg.MaxNonce, "max-nonce", "n", 1, "Highest proxy nonce probed per salt, inclusive")
	rootCmd.Flags().IntVarP(&cfg.TotalZeros, "total-zeros", "z", -1, "Minimum total zero bytes for an address to count as found")
	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of parallel lane workers")
	rootCmd.Flags().Uint64VarP(&cfg.BatchSize, "batch-size", "b", config.DefaultBatchSize, "Salts evaluated per dispatch")
	rootCmd.Flags().StringVarP(&cfg.OutputFile, "output-file", "O", config.DefaultOutputFile, "File found salts are appended to")
	rootCmd.Flags().StringVar(&cfg.PostURL, "post-url", "", "URL to POST found salts to as JSON")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().IntVar(&cfg.LogInterval, "log-interval", config.DefaultLogInterval, "Seconds between progress lines")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMiner(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logpkg.New()
	log.SetVerbose(cfg.Verbose)

	rep, err := buildReporter(log)
	if err != nil {
		return err
	}
	defer rep.Close()

	m, err := minerpkg.NewMiner(cfg, rep, log)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Infof("mining with %d workers, batch size %d, max nonce %d", cfg.Workers, cfg.BatchSize, cfg.MaxNonce)
	log.Infof("factory %s, owner %s", cfg.Factory, cfg.Owner)
	for i, p := range cfg.Patterns {
		log.Infof("pattern %d: %s", i, p)
	}
	if cfg.TotalZeros >= 0 {
		log.Infof("accepting addresses with >= %d zero bytes", cfg.TotalZeros)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	counters, err := m.Mine(ctx)

	log.Infof("run finished: %d batches, %d salts, %d addresses, %d found, %v elapsed, %.2fm addr/s",
		counters.Batches, counters.Salts, counters.Addresses, counters.Matches,
		counters.Elapsed().Round(time.Second), counters.Rate()/1e6)
	if counters.Truncated > 0 {
		log.Warnf("%d match(es) were dropped to buffer overflow", counters.Truncated)
	}
	return err
}

func buildReporter(log *logpkg.Logger) (reporter.Reporter, error) {
	reps := []reporter.Reporter{reporter.NewLogReporter(log)}
	if cfg.OutputFile != "" {
		fr, err := reporter.NewFileReporter(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		reps = append(reps, fr)
	}
	if cfg.PostURL != "" {
		reps = append(reps, reporter.NewHTTPReporter(cfg.PostURL))
	}
	return reporter.NewMulti(reps...), nil
}
