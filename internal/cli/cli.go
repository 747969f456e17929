// Package cli is the headless foreground: it drains the run's event stream,
// renders a progress line, prints the summary table, and writes the report in
// the configured format.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"browsebench/internal/browser"
	"browsebench/internal/dnsbench"
	"browsebench/internal/report"
	"browsebench/internal/runner"
	"browsebench/internal/settings"
)

func Start(s settings.Settings, log *slog.Logger) {
	printHeader(s)

	run := runner.New(s.Config, browser.NewFactory(log), log)

	// First interrupt requests a cooperative stop; the in-flight wait still
	// resolves before the run winds down.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStop requested, waiting for the current page load...")
		run.Stop()
	}()

	go run.Run()

	var current, total int
	var lastStatus string
	stopped := false

	for ev := range run.Events() {
		switch ev := ev.(type) {
		case runner.ProgressEvent:
			current, total = ev.Current, ev.Total
		case runner.StatusEvent:
			lastStatus = ev.Message
		case runner.ResultEvent:
			// Counters come from the shared stats snapshot on redraw.
		case runner.FatalEvent:
			fmt.Printf("\n!! %s\n", ev.Message)
		case runner.DNSResultsEvent:
			printDNS(ev.Results)
		case runner.DoneEvent:
			stopped = ev.Stopped
		}
		drawProgress(current, total, lastStatus, run)
	}
	signal.Stop(sigCh)

	fmt.Println()
	if stopped {
		fmt.Println("Run stopped by user.")
	}

	results := run.Results()
	printSummary(results)

	if len(results) > 0 {
		if filename, err := writeReport(results, s); err != nil {
			fmt.Printf("Report export failed: %v\n", err)
		} else {
			fmt.Printf("Report written to %s\n", filename)
		}
	}
}

func printHeader(s settings.Settings) {
	fmt.Printf("\nSTARTING BROWSE SPEED TEST\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("URLs         : %d\n", len(s.URLs))
	fmt.Printf("Runs per URL : %d\n", s.RunsPerURL)
	fmt.Printf("Browser      : %s (headless: %v)\n", s.Browser, s.Headless)
	fmt.Printf("Wait strategy: %s (timeout %ds)\n", s.WaitStrategy, s.TimeoutSeconds)
	fmt.Printf("DNS benchmark: %v\n", s.RunDNSBenchmark)
	fmt.Printf("======================================================================\n\n")
}

func drawProgress(current, total int, status string, run *runner.Runner) {
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total)
	}
	snap := run.Stats.Snapshot()
	fmt.Printf("\r%s %3.0f%% | %d/%d | OK: %d | Err: %d | %-50s",
		progressBar(pct, 20), pct*100,
		current, total,
		snap.Success, snap.Fail,
		truncate(status, 50),
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printDNS(results dnsbench.Results) {
	labels := make([]string, 0, len(results))
	for label := range results {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Printf("\nDNS LATENCY\n")
	for _, label := range labels {
		probe := results[label]
		if probe.Status == "Success" {
			fmt.Printf("  %-36s %8.2f ms\n", label, probe.LatencyMs)
		} else {
			fmt.Printf("  %-36s %s\n", label, probe.Status)
		}
	}
	fmt.Println()
}

func printSummary(results []runner.Result) {
	if len(results) == 0 {
		fmt.Println("\nNo results.")
		return
	}

	summary := report.Summarize(results)

	fmt.Printf("\n\nLOAD TIME SUMMARY (ms)\n")
	fmt.Printf("======================================================================\n")
	for _, url := range report.SortedURLs(results) {
		s := summary[url]
		fmt.Printf("%s\n", url)
		if s.HasStats {
			fmt.Printf("   ok: %d  err: %d  avg: %.2f  median: %.2f  min: %.2f  max: %.2f  stddev: %.2f\n",
				s.NumSuccessfulRuns, s.NumErrors,
				s.AvgLoadTimeMs, s.MedianLoadTimeMs,
				s.MinLoadTimeMs, s.MaxLoadTimeMs, s.StdDevLoadTimeMs)
		} else {
			fmt.Printf("   ok: 0  err: %d  stats: %s\n", s.NumErrors, report.Unavailable)
		}
		for _, msg := range s.ErrorMessages {
			fmt.Printf("   ! %s\n", truncate(msg, 100))
		}
	}
}

func writeReport(results []runner.Result, s settings.Settings) (string, error) {
	ts := time.Now().Format("20060102_150405")
	if s.ExportFormat == "JSON" {
		filename := fmt.Sprintf("browse_speed_report_%s.json", ts)
		return filename, report.ExportJSON(filename, results, s.TestConfiguration())
	}
	filename := fmt.Sprintf("browse_speed_report_%s.csv", ts)
	return filename, report.ExportCSV(filename, results)
}

// truncate shortens s to at most n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
