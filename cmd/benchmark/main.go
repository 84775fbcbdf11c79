// Benchmark tool for load-testing Kestrel's assessment pipeline.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -n 10000
//
// This tool:
//   1. Generates randomized merchant questionnaire submissions
//   2. Sends each submission to Kestrel for assessment
//   3. Collects latency percentiles and score/visa distributions
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// AssessmentRequest mirrors the Kestrel API request format.
type AssessmentRequest struct {
	SubjectID                   string         `json:"subjectId"`
	Answers                     map[string]any `json:"answers"`
	Markets                     []string       `json:"markets"`
	HasUploadedVerificationData bool           `json:"hasUploadedVerificationData"`
}

// AssessmentResponse is the subset of the response the benchmark inspects.
type AssessmentResponse struct {
	ID      string `json:"id"`
	Overall struct {
		Score    int    `json:"score"`
		RiskTier string `json:"riskTier"`
	} `json:"overall"`
	Alerts   []any `json:"alerts"`
	Passport *struct {
		PassportID string `json:"passport_id"`
	} `json:"passport"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64
	TotalAlerts    int64
	TotalPassports int64

	mu        sync.Mutex
	latencies []time.Duration
	tiers     map[string]int64
}

func (m *Metrics) record(latency time.Duration, resp *AssessmentResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latency)
	m.tiers[resp.Overall.RiskTier]++
}

var industries = []string{"saas", "physical_goods", "digital_goods", "marketplace", "travel", "financial_services", "other"}
var stages = []string{"pre_launch", "early", "growth", "established"}
var procedures = []string{"none", "basic", "documented", "comprehensive"}
var marketSets = [][]string{
	{"US"},
	{"BR_PIX"},
	{"EU_SCA"},
	{"US", "EU_SCA"},
	{"US", "BR_PIX", "EU_SCA"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	count := flag.Int("n", 10000, "Number of submissions to send")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for reproducible submissions")
	verbose := flag.Bool("verbose", false, "Print each assessment result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          KESTREL BENCHMARK - Assessment Throughput            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Submissions: %d\n", *count)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	rng := rand.New(rand.NewSource(*seed))
	submissions := make([]AssessmentRequest, *count)
	for i := range submissions {
		submissions[i] = randomSubmission(rng, i)
	}
	fmt.Printf("✓ Generated %d submissions\n", len(submissions))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(submissions, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// randomSubmission builds one plausible merchant questionnaire. Rates skew
// low with an occasional high-risk outlier so alerts actually fire.
func randomSubmission(rng *rand.Rand, i int) AssessmentRequest {
	disputeRate := rng.Float64() * 0.004
	if rng.Intn(10) == 0 {
		disputeRate = 0.006 + rng.Float64()*0.008
	}

	answers := map[string]any{
		"q_industry":             industries[rng.Intn(len(industries))],
		"q_business_stage":       stages[rng.Intn(len(stages))],
		"q_years_operating":      rng.Intn(12),
		"q_policy_refund":        rng.Intn(4) > 0,
		"q_policy_privacy":       rng.Intn(4) > 0,
		"q_policy_terms":         rng.Intn(3) > 0,
		"q_prior_suspension":     rng.Intn(20) == 0,
		"q_monthly_dispute_rate": disputeRate,
		"q_chargeback_rate":      rng.Float64() * 0.006,
		"q_dispute_procedure":    procedures[rng.Intn(len(procedures))],
		"q_fulfillment_days":     1 + rng.Intn(14),
		"q_payment_methods":      []string{"card", "wallet"},
	}

	markets := marketSets[rng.Intn(len(marketSets))]
	for _, m := range markets {
		switch m {
		case "US":
			answers["q_us_rdr_enrolled"] = rng.Intn(2) == 0
			answers["q_us_avs_enabled"] = rng.Intn(3) > 0
		case "BR_PIX":
			answers["q_pix_refund_automation"] = rng.Intn(2) == 0
		case "EU_SCA":
			answers["q_sca_auth_rate"] = 0.85 + rng.Float64()*0.13
			answers["q_sca_exemption_strategy"] = []string{"none", "tra", "low_value", "mixed"}[rng.Intn(4)]
		}
	}

	return AssessmentRequest{
		SubjectID:                   fmt.Sprintf("bench-merchant-%06d", i),
		Answers:                     answers,
		Markets:                     markets,
		HasUploadedVerificationData: rng.Intn(3) == 0,
	}
}

func runBenchmark(submissions []AssessmentRequest, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{tiers: make(map[string]int64)}

	work := make(chan AssessmentRequest, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for req := range work {
				start := time.Now()
				result, err := runAssessment(client, baseURL, tenantID, req)
				elapsed := time.Since(start)

				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", req.SubjectID, err)
					}
					continue
				}

				atomic.AddInt64(&metrics.TotalAlerts, int64(len(result.Alerts)))
				if result.Passport != nil {
					atomic.AddInt64(&metrics.TotalPassports, 1)
				}
				metrics.record(elapsed, result)

				if verbose {
					fmt.Printf("✓ %-22s | Score: %3d | Tier: %-8s | Alerts: %d | %v\n",
						req.SubjectID,
						result.Overall.Score,
						result.Overall.RiskTier,
						len(result.Alerts),
						elapsed.Round(time.Millisecond),
					)
				}
			}
		}()
	}

	for _, req := range submissions {
		work <- req
	}
	close(work)

	wg.Wait()

	return metrics
}

func runAssessment(client *http.Client, baseURL, tenantID string, req AssessmentRequest) (*AssessmentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/assessments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AssessmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 THROUGHPUT\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Passports Issued: %d\n", m.TotalPassports)
	fmt.Printf("   Alerts Fired:     %d\n", m.TotalAlerts)
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		fmt.Printf("   Rate:             %.2f assessments/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) > 0 {
		sorted := make([]time.Duration, len(m.latencies))
		copy(sorted, m.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var total time.Duration
		for _, l := range sorted {
			total += l
		}

		fmt.Printf("\n⏱️  LATENCY\n")
		fmt.Printf("   Mean:  %v\n", (total / time.Duration(len(sorted))).Round(time.Microsecond))
		fmt.Printf("   p50:   %v\n", percentile(sorted, 0.50).Round(time.Microsecond))
		fmt.Printf("   p95:   %v\n", percentile(sorted, 0.95).Round(time.Microsecond))
		fmt.Printf("   p99:   %v\n", percentile(sorted, 0.99).Round(time.Microsecond))
		fmt.Printf("   Max:   %v\n", sorted[len(sorted)-1].Round(time.Microsecond))
	}

	if len(m.tiers) > 0 {
		fmt.Printf("\n🎯 RISK TIER DISTRIBUTION\n")
		tiers := make([]string, 0, len(m.tiers))
		for t := range m.tiers {
			tiers = append(tiers, t)
		}
		sort.Strings(tiers)
		for _, t := range tiers {
			count := m.tiers[t]
			fmt.Printf("   %-10s %8d (%.2f%%)\n", t, count, 100*float64(count)/float64(m.TotalProcessed-m.TotalErrors))
		}
	}

	fmt.Println()
}
