package relay

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/mlsrelay/cmd/util"
	"github.com/ValentinKolb/mlsrelay/lib/store"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:               "perf",
		Short:             "Performance testing tool for relay servers",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
		PreRunE:            processPerfConfig,
		RunE:               runPerf,
	}
	perfPrefix           = "__perf"
	perfLargePayloadKB   = 64
	perfNumThreads       = 10
	perfOpsPerThread     = 1000
	perfSkip             = make([]string, 0)
	perfPercentiles      = []float64{0.5, 0.95, 0.99}
	perfPercentileLabels = []string{"p50", "p95", "p99"}
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put-bundle,relay-large)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients, each one is a member of the test group"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per thread and benchmark"))
	key = "large-payload-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Payload size of the relay-large benchmark (in KB)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargePayloadKB = viper.GetInt("large-payload-size")
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOpsPerThread = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfScenario is one benchmark: op is called ops times by every thread
type perfScenario struct {
	name  string
	setup func(s store.IStore, group string) error
	op    func(s store.IStore, group string, thread, i int) error
}

// perfResult is the outcome of one scenario
type perfResult struct {
	name     string
	skipped  bool
	timer    gometrics.Timer
	errors   gometrics.Counter
	duration time.Duration
}

// opsPerSec is the measured throughput over all threads
func (r perfResult) opsPerSec() float64 {
	if r.duration <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.duration.Seconds()
}

func member(thread int) string {
	return fmt.Sprintf("%s-member-%d", perfPrefix, thread)
}

// perfScenarios returns all benchmarks in execution order
func perfScenarios() []perfScenario {
	small := []byte("perf")
	large := make([]byte, perfLargePayloadKB*1024)

	return []perfScenario{
		{
			name: "put-bundle",
			op: func(s store.IStore, _ string, thread, _ int) error {
				return s.PutBundle(member(thread), small)
			},
		},
		{
			name: "get-bundle",
			op: func(s store.IStore, _ string, thread, _ int) error {
				_, _, err := s.GetBundle(member(thread))
				return err
			},
		},
		{
			name: "join-group",
			op: func(s store.IStore, group string, thread, _ int) error {
				_, err := s.JoinGroup(group, member(thread))
				return err
			},
		},
		{
			name: "relay",
			op: func(s store.IStore, group string, thread, _ int) error {
				return s.Relay(group, member(thread), small, store.KindApplication)
			},
		},
		{
			name: "relay-large",
			op: func(s store.IStore, group string, thread, _ int) error {
				return s.Relay(group, member(thread), large, store.KindApplication)
			},
		},
		{
			name: "fetch-messages",
			op: func(s store.IStore, group string, thread, i int) error {
				_, _, err := s.FetchMessages(group, member(thread), uint64(i), 10)
				return err
			},
		},
		{
			name: "mixed",
			op: func(s store.IStore, group string, thread, i int) error {
				var err error
				switch i % 4 {
				case 0:
					err = s.Relay(group, member(thread), small, store.KindCommit)
				case 1:
					_, err = s.GetGroup(group)
				case 2:
					_, _, err = s.FetchMessages(group, member(thread), 0, 1)
				case 3:
					_, _, err = s.GetBundle(member(thread))
				}
				return err
			},
		},
	}
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for relay servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, operations per thread: %d\n", perfNumThreads, perfOpsPerThread)
	fmt.Println()

	// Every run uses its own group so repeated runs against one server do not collide
	group := fmt.Sprintf("%s-%d", perfPrefix, time.Now().UnixNano())
	if _, err := rpcStore.CreateGroup(group, member(0)); err != nil {
		return fmt.Errorf("failed to create test group: %w", err)
	}
	for thread := 1; thread < perfNumThreads; thread++ {
		if _, err := rpcStore.JoinGroup(group, member(thread)); err != nil {
			return fmt.Errorf("failed to join test group: %w", err)
		}
	}

	fmt.Println("starting tests...")
	printHeader()

	registry := gometrics.NewRegistry()
	results := make([]perfResult, 0)
	for _, sc := range perfScenarios() {
		res := runScenario(rpcStore, registry, group, sc, perfNumThreads, perfOpsPerThread)
		printResult(res)
		results = append(results, res)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runScenario runs one benchmark with the given number of threads and records every
// operation in a timer of the registry
func runScenario(s store.IStore, registry gometrics.Registry, group string, sc perfScenario, threads, ops int) perfResult {
	res := perfResult{
		name:   sc.name,
		timer:  gometrics.GetOrRegisterTimer(sc.name+".latency", registry),
		errors: gometrics.GetOrRegisterCounter(sc.name+".errors", registry),
	}
	if slices.Contains(perfSkip, sc.name) {
		res.skipped = true
		return res
	}

	if sc.setup != nil {
		if err := sc.setup(s, group); err != nil {
			res.errors.Inc(1)
			res.skipped = true
			return res
		}
	}

	var wg sync.WaitGroup
	start := time.Now()
	for thread := 0; thread < threads; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				opStart := time.Now()
				err := sc.op(s, group, thread, i)
				res.timer.UpdateSince(opStart)
				if err != nil {
					res.errors.Inc(1)
				}
			}
		}(thread)
	}
	wg.Wait()
	res.duration = time.Since(start)

	return res
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

func printHeader() {
	fmt.Printf("%-16s%12s%12s%12s%12s%12s%8s\n", "test", "ops/sec", "mean", "p50", "p95", "p99", "errors")
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-16sskipped\n", r.name)
		return
	}
	ps := r.timer.Percentiles(perfPercentiles)
	fmt.Printf("%-16s%12.0f%12s%12s%12s%12s%8d\n",
		r.name,
		r.opsPerSec(),
		time.Duration(r.timer.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		time.Duration(ps[2]).Round(time.Microsecond),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	config := util.GetClientConfig()

	// Write header
	header := []string{"Test", "Skipped", "Ops", "Errors", "OpsPerSec", "MeanNs"}
	for _, label := range perfPercentileLabels {
		header = append(header, strings.ToUpper(label[:1])+label[1:]+"Ns")
	}
	header = append(header,
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport", "Threads", "OpsPerThread", "LargePayloadKB",
	)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write test results
	for _, r := range results {
		row := []string{
			r.name,
			strconv.FormatBool(r.skipped),
			strconv.FormatInt(r.timer.Count(), 10),
			strconv.FormatInt(r.errors.Count(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			fmt.Sprintf("%.0f", r.timer.Mean()),
		}
		for _, p := range r.timer.Percentiles(perfPercentiles) {
			row = append(row, fmt.Sprintf("%.0f", p))
		}
		row = append(row,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerThread),
			strconv.Itoa(perfLargePayloadKB),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", r.name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
