// Command perf-regression compares two `go test -bench` outputs and fails
// when a tracked hot path regressed past the threshold.
//
//	go test -run '^$' -bench . -count 5 ./ > base.txt
//	go test -run '^$' -bench . -count 5 ./ > cand.txt
//	go run ./security/cmd/perf-regression -baseline base.txt -candidate cand.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// defaultTracked covers the per-request verification paths. Login is
// dominated by argon2 and tracked on ns/op only.
var defaultTracked = map[string][]string{
	"BenchmarkVerifySignedRequest": {"ns/op", "allocs/op"},
	"BenchmarkValidateActionToken": {"ns/op", "allocs/op"},
	"BenchmarkRedeemAccessCode":    {"ns/op"},
	"BenchmarkLogin":               {"ns/op"},
}

type sampleSet map[string]map[string][]float64

type comparison struct {
	Benchmark string
	Metric    string
	Baseline  float64
	Candidate float64
	Delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
		track         string
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.StringVar(&track, "track", "", "override tracked set, e.g. BenchmarkLogin=ns/op,BenchmarkRedeemAccessCode=ns/op+allocs/op")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	tracked := defaultTracked
	if track != "" {
		parsed, err := parseTracked(track)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse -track: %v\n", err)
			os.Exit(2)
		}
		tracked = parsed
	}

	baseline, err := parseBenchmarkFile(baselinePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseBenchmarkFile(candidatePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(tracked, baseline, candidate, threshold)

	fmt.Println("perf regression check:")
	fmt.Println("benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Metric, r.Baseline, r.Candidate, r.Delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

// compare walks tracked in sorted order so output is stable between runs.
func compare(tracked map[string][]string, baseline, candidate sampleSet, threshold float64) ([]comparison, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []comparison
		failures []string
	)
	for _, benchmark := range names {
		for _, metric := range tracked[benchmark] {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)
			if baseMedian <= 0 {
				// allocs/op of zero on both sides is not a regression.
				if baseMedian == 0 && candidateMedian == 0 {
					continue
				}
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", benchmark, metric))
				continue
			}

			delta := (candidateMedian - baseMedian) / baseMedian
			rows = append(rows, comparison{
				Benchmark: benchmark,
				Metric:    metric,
				Baseline:  baseMedian,
				Candidate: candidateMedian,
				Delta:     delta,
			})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseTracked(raw string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, metrics, ok := strings.Cut(item, "=")
		if !ok || name == "" || metrics == "" {
			return nil, fmt.Errorf("expected name=metric[+metric], got %q", item)
		}
		out[name] = append(out[name], strings.Split(metrics, "+")...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no benchmarks named")
	}
	return out, nil
}

func parseBenchmarkFile(path string, tracked map[string][]string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseBenchmarks(file, tracked)
}

func parseBenchmarks(r io.Reader, tracked map[string][]string) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}

		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
