package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RaceResult gathers aggregated metrics for the test run.
// Atomic counters are used to avoid lock-contention on hot paths.
// LatencySum is in nanoseconds.
type RaceResult struct {
	TotalRequests int64
	Wins          int64
	Conflicts     int64
	BadRequests   int64
	Errors        int64
	LatencySum    int64
}

const (
	fixedClaimants = 25
	fixedRPSTarget = 500
	fixedLeadPool  = 40
	defaultTimeout = 30 * time.Second
	baseURL        = "http://localhost:8080"
)

func main() {
	transport := &http.Transport{
		MaxIdleConns:        fixedClaimants * 4,
		MaxIdleConnsPerHost: fixedClaimants * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}

	leadIDs, err := fetchLostLeads(httpClient, fixedLeadPool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch lost lead pool: %v\n", err)
		os.Exit(1)
	}
	if len(leadIDs) == 0 {
		fmt.Fprintln(os.Stderr, "no PERSO leads available to contest")
		os.Exit(1)
	}

	fmt.Println("==========================================")
	fmt.Println("Lead claim race client")
	fmt.Println("==========================================")
	fmt.Printf("Contested leads  : %d\n", len(leadIDs))
	fmt.Printf("Claimants/lead   : %d\n", fixedClaimants)
	fmt.Printf("RPS target       : %d\n", fixedRPSTarget)
	fmt.Println("==========================================")

	burst := fixedRPSTarget / fixedClaimants
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(fixedRPSTarget), burst)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var result RaceResult
	start := time.Now()

	// Every claimant races every lead. Exactly one 200 per lead is the
	// consistency target; everything else must be a clean 409.
	for _, leadID := range leadIDs {
		var wg sync.WaitGroup
		for i := 0; i < fixedClaimants; i++ {
			wg.Add(1)
			go func(claimant int) {
				defer wg.Done()
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				claim(ctx, httpClient, leadID, fmt.Sprintf("perf-user-%02d", claimant), &result)
			}(i)
		}
		wg.Wait()
	}

	totalDur := time.Since(start)

	var avgLatency time.Duration
	if result.TotalRequests > 0 {
		avgLatency = time.Duration(result.LatencySum / result.TotalRequests)
	}

	fmt.Println("==========================================")
	fmt.Println("Claim race results")
	fmt.Println("==========================================")
	fmt.Printf("Duration         : %.2fs\n", totalDur.Seconds())
	fmt.Printf("Total requests   : %d\n", result.TotalRequests)
	fmt.Printf("Wins (200)       : %d\n", result.Wins)
	fmt.Printf("Conflicts (409)  : %d\n", result.Conflicts)
	fmt.Printf("Bad requests     : %d\n", result.BadRequests)
	fmt.Printf("Errors           : %d\n", result.Errors)
	fmt.Printf("Avg latency      : %v\n", avgLatency)

	if result.Wins == int64(len(leadIDs)) {
		fmt.Println("CONSISTENT: exactly one winner per contested lead")
	} else {
		fmt.Printf("INCONSISTENT: expected %d wins, got %d\n", len(leadIDs), result.Wins)
		os.Exit(1)
	}
}

func fetchLostLeads(client *http.Client, limit int) ([]string, error) {
	url := fmt.Sprintf("%s/leads/perso?pageSize=%d", baseURL, limit)
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Leads []struct {
			ID string `json:"id"`
		} `json:"leads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(body.Leads))
	for _, l := range body.Leads {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func claim(ctx context.Context, client *http.Client, leadID, claimant string, result *RaceResult) {
	payload := []byte(`{"recoverLead":true,"claimLead":true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/leads/%s", baseURL, leadID), bytes.NewReader(payload))
	if err != nil {
		atomic.AddInt64(&result.Errors, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", claimant)

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)

	atomic.AddInt64(&result.TotalRequests, 1)
	atomic.AddInt64(&result.LatencySum, int64(latency))

	if err != nil {
		atomic.AddInt64(&result.Errors, 1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		atomic.AddInt64(&result.Wins, 1)
	case http.StatusConflict:
		atomic.AddInt64(&result.Conflicts, 1)
	case http.StatusBadRequest:
		atomic.AddInt64(&result.BadRequests, 1)
	default:
		atomic.AddInt64(&result.Errors, 1)
	}
}
