package hilo

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/rpc/client"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dDoc servers",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTagPrefix  = "__perf"
	perfNumThreads = 10
	perfTagSpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. next-id,fetch-range)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "tags"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different collection tags to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfTagSpread = max(viper.GetInt("tags"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for dDoc servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)

	nextIDResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("next-id") {
			return
		}

		tag := perfTagPrefix + "-next-id"

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := docStore.GenerateDocumentIDForTag(ctx, "", tag); err != nil {
					log.Printf("(next-id) - error generating id: %v\n", err)
				}
			}
		})
	})

	results["next-id"] = nextIDResult
	printResult("next-id", nextIDResult)

	nextIDTagsResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("next-id-tags") {
			return
		}

		getTag := getTags("next-id-tags")

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := docStore.GenerateDocumentIDForTag(ctx, "", getTag(counter)); err != nil {
					log.Printf("(next-id-tags) - error generating id: %v\n", err)
				}
				counter++
			}
		})
	})

	results["next-id-tags"] = nextIDTagsResult
	printResult("next-id-tags", nextIDTagsResult)

	// fetch-range measures the raw round trip of a range request, without the client side cache
	fetchRangeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("fetch-range") {
			return
		}

		getTag := getTags("fetch-range")

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := docStore.Executor().Execute(ctx, client.NewNextHiloCommand(docStore.Database(), common.NextRangeRequest{
					Tag:      getTag(counter),
					Capacity: 1,
				}))
				if err != nil {
					log.Printf("(fetch-range) - error fetching range: %v\n", err)
				}
				counter++
			}
		})
	})

	results["fetch-range"] = fetchRangeResult
	printResult("fetch-range", fetchRangeResult)

	getDocumentResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-document") {
			return
		}

		tag := perfTagPrefix + "-get-document"
		if _, err := docStore.GenerateDocumentIDForTag(ctx, "", tag); err != nil {
			log.Printf("(get-document) - error generating id: %v\n", err)
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, _, err := docStore.GetHiloDocument(ctx, "", tag); err != nil {
					log.Printf("(get-document) - error reading document: %v\n", err)
				}
			}
		})
	})

	results["get-document"] = getDocumentResult
	printResult("get-document", getDocumentResult)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getTags returns a function mapping an index to one of perfTagSpread tags
func getTags(prefix string) func(int) string {
	tags := make([]string, perfTagSpread)
	for i := range tags {
		tags[i] = fmt.Sprintf("%s-%s-%d", perfTagPrefix, prefix, i)
	}
	return func(i int) string {
		return tags[i%perfTagSpread]
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "Database", "TimeoutSec", "RetryCount", "ReadBalance",
		"Serializer", "HiloCapacity", "Threads", "Tags Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Endpoints, ";"),
			config.Database,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			string(config.ReadBalance),
			config.Serializer,
			strconv.FormatInt(config.HiloCapacity, 10),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfTagSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
