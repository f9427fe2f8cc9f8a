package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the scan API.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	scansTotal      = make(map[string]int64)
	scanPagesTotal  int64
	violationsTotal = make(map[string]int64)

	fetchTotal      = make(map[string]int64)
	fetchLatencySum int64

	llmClassify = make(map[llmKey]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type llmKey struct {
	Provider string
	Model    string
	Outcome  string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordScan counts a finished scan by outcome ("completed", "failed")
// and adds the number of pages it analyzed.
func RecordScan(outcome string, pagesAnalyzed int) {
	mu.Lock()
	defer mu.Unlock()

	scansTotal[outcome]++
	if pagesAnalyzed > 0 {
		scanPagesTotal += int64(pagesAnalyzed)
	}
}

// RecordViolations adds violations found by a detector source
// ("clear" or "semantic").
func RecordViolations(source string, n int) {
	if n <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	violationsTotal[source] += int64(n)
}

// RecordFetch counts a page fetch and its latency.
func RecordFetch(success bool, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	fetchTotal[s]++
	fetchLatencySum += latencyMs
}

// RecordLLMClassify counts semantic classification attempts by outcome
// ("ok", "error", "safe_skip", "disabled").
func RecordLLMClassify(provider, model, outcome string) {
	mu.Lock()
	defer mu.Unlock()

	key := llmKey{Provider: provider, Model: model, Outcome: outcome}
	llmClassify[key]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP policyguard_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE policyguard_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		fmt.Fprintf(&b, "policyguard_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP policyguard_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE policyguard_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP policyguard_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE policyguard_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "policyguard_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "policyguard_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	// Scan metrics
	b.WriteString("# HELP policyguard_scans_total Total scans by outcome\n")
	b.WriteString("# TYPE policyguard_scans_total counter\n")
	writeStringCounter(&b, "policyguard_scans_total", "outcome", scansTotal)

	b.WriteString("# HELP policyguard_scan_pages_analyzed_total Total pages analyzed across scans\n")
	b.WriteString("# TYPE policyguard_scan_pages_analyzed_total counter\n")
	fmt.Fprintf(&b, "policyguard_scan_pages_analyzed_total %d\n", scanPagesTotal)

	b.WriteString("# HELP policyguard_violations_total Total violations by detector source\n")
	b.WriteString("# TYPE policyguard_violations_total counter\n")
	writeStringCounter(&b, "policyguard_violations_total", "source", violationsTotal)

	// Fetch metrics
	b.WriteString("# HELP policyguard_fetch_requests_total Total page fetches by success\n")
	b.WriteString("# TYPE policyguard_fetch_requests_total counter\n")
	writeStringCounter(&b, "policyguard_fetch_requests_total", "success", fetchTotal)

	b.WriteString("# HELP policyguard_fetch_duration_ms_sum Total fetch duration in milliseconds\n")
	b.WriteString("# TYPE policyguard_fetch_duration_ms_sum counter\n")
	fmt.Fprintf(&b, "policyguard_fetch_duration_ms_sum %d\n", fetchLatencySum)

	// LLM metrics
	b.WriteString("# HELP policyguard_llm_classify_requests_total Total semantic classification attempts\n")
	b.WriteString("# TYPE policyguard_llm_classify_requests_total counter\n")

	var llmKeys []llmKey
	for k := range llmClassify {
		llmKeys = append(llmKeys, k)
	}
	sort.Slice(llmKeys, func(i, j int) bool {
		if llmKeys[i].Provider != llmKeys[j].Provider {
			return llmKeys[i].Provider < llmKeys[j].Provider
		}
		if llmKeys[i].Model != llmKeys[j].Model {
			return llmKeys[i].Model < llmKeys[j].Model
		}
		return llmKeys[i].Outcome < llmKeys[j].Outcome
	})

	for _, k := range llmKeys {
		fmt.Fprintf(&b, "policyguard_llm_classify_requests_total{provider=\"%s\",model=\"%s\",outcome=\"%s\"} %d\n",
			k.Provider, k.Model, k.Outcome, llmClassify[k])
	}

	return b.String()
}

func writeStringCounter(b *strings.Builder, name, label string, values map[string]int64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=\"%s\"} %d\n", name, label, k, values[k])
	}
}
