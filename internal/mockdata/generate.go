package mockdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TopologySchemaVersion is written into generated topology files and
// checked against MinSchemaVersion on load.
const TopologySchemaVersion = "1.2.0"

// WriteDemoData writes the complete fixture tree for the demo incident
// under dir: topology, scenario, four log slices and three metric slices
// recording a database connection pool exhaustion in production.
// Existing files are overwritten.
func WriteDemoData(dir string) error {
	fixtures := []struct {
		rel     string
		content map[string]any
	}{
		{filepath.Join("topology", "production.json"), demoTopology()},
		{filepath.Join("scenarios", DemoIncidentID+"-database-failure.json"), demoScenario()},
		{filepath.Join("logs", DemoIncidentID, "high_level.json"), demoHighLevelLogs()},
		{filepath.Join("logs", DemoIncidentID, "application_logs.json"), demoApplicationLogs()},
		{filepath.Join("logs", DemoIncidentID, "database_logs.json"), demoDatabaseLogs()},
		{filepath.Join("logs", DemoIncidentID, "infrastructure_logs.json"), demoInfrastructureLogs()},
		{filepath.Join("metrics", DemoIncidentID, "application_metrics.json"), demoApplicationMetrics()},
		{filepath.Join("metrics", DemoIncidentID, "database_metrics.json"), demoDatabaseMetrics()},
		{filepath.Join("metrics", DemoIncidentID, "infrastructure_metrics.json"), demoInfrastructureMetrics()},
	}

	for _, f := range fixtures {
		if err := writeJSON(filepath.Join(dir, f.rel), f.content); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(path string, content map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create fixture directory %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fixture %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write fixture %s: %w", path, err)
	}
	return nil
}

func demoTopology() map[string]any {
	return map[string]any{
		"schema_version": TopologySchemaVersion,
		"environment":    "production",
		"services": []map[string]any{
			{
				"name":       "payment-api",
				"tier":       "application",
				"replicas":   3,
				"autoscaler": map[string]any{"enabled": true, "min_replicas": 3, "max_replicas": 12},
				"depends_on": []string{"orders-db"},
			},
			{
				"name":            "orders-db",
				"tier":            "database",
				"engine":          "postgres",
				"max_connections": 100,
				"depends_on":      []string{},
			},
			{
				"name":       "edge-gateway",
				"tier":       "infrastructure",
				"replicas":   2,
				"depends_on": []string{"payment-api"},
			},
		},
		"notes": "orders-db max_connections is static; payment-api autoscaling is load-driven",
	}
}

func demoScenario() map[string]any {
	return map[string]any{
		"incident_id":       DemoIncidentID,
		"title":             "Database connection pool exhaustion",
		"category":          "database_failure",
		"severity":          "SEV-1",
		"environment":       "production",
		"started_at":        "2025-11-03T14:02:00Z",
		"affected_services": []string{"payment-api", "orders-db"},
		"expected_symptoms": map[string][]string{
			"application":    {"increased latency", "database timeouts", "retry storms"},
			"database":       {"high connection usage", "connection pool exhaustion"},
			"infrastructure": {"autoscaling mismatch"},
		},
	}
}

func demoHighLevelLogs() map[string]any {
	return map[string]any{
		"source": "incident-timeline",
		"events": []map[string]any{
			{"ts": "2025-11-03T14:02:11Z", "message": "Checkout error rate crossed 5% SLO threshold"},
			{"ts": "2025-11-03T14:03:40Z", "message": "Pager fired: payment-api availability degraded in production"},
			{"ts": "2025-11-03T14:05:02Z", "message": "Incident inc-db-5001 opened at SEV-1"},
		},
	}
}

func demoApplicationLogs() map[string]any {
	return map[string]any{
		"source": "payment-api",
		"entries": []map[string]any{
			{"ts": "2025-11-03T14:02:09Z", "level": "ERROR", "message": "Timeout acquiring database connection from pool after 5000ms"},
			{"ts": "2025-11-03T14:02:31Z", "level": "WARN", "message": "Request to orders-db timed out, scheduling retry (attempt 3/5)"},
			{"ts": "2025-11-03T14:03:10Z", "level": "ERROR", "message": "Retry storm detected: 4812 retries against orders-db in the last 60s"},
			{"ts": "2025-11-03T14:04:48Z", "level": "ERROR", "message": "Circuit breaker OPEN for orders-db after 50 consecutive failures"},
		},
	}
}

func demoDatabaseLogs() map[string]any {
	return map[string]any{
		"source": "orders-db",
		"entries": []map[string]any{
			{"ts": "2025-11-03T14:01:55Z", "level": "FATAL", "message": "too many connections for role \"payment_api\""},
			{"ts": "2025-11-03T14:02:20Z", "level": "ERROR", "message": "connection pool exhausted: 100 of 100 slots in use"},
			{"ts": "2025-11-03T14:02:58Z", "level": "WARN", "message": "client connection rejected: server connection limit reached"},
		},
	}
}

func demoInfrastructureLogs() map[string]any {
	return map[string]any{
		"source": "cluster-autoscaler",
		"entries": []map[string]any{
			{"ts": "2025-11-03T14:01:30Z", "level": "INFO", "message": "Scaled payment-api from 3 to 7 pods (cpu target exceeded)"},
			{"ts": "2025-11-03T14:02:45Z", "level": "INFO", "message": "Scaled payment-api from 7 to 12 pods (cpu target exceeded)"},
			{"ts": "2025-11-03T14:03:02Z", "level": "WARN", "message": "payment-api at max autoscaler capacity"},
		},
	}
}

func demoApplicationMetrics() map[string]any {
	return map[string]any{
		"service": "payment-api",
		"series": []map[string]any{
			{"name": "p99_latency_ms", "window": "14:00-14:05", "values": []int{240, 1900, 6200, 8400, 9100}},
			{"name": "error_rate_percent", "window": "14:00-14:05", "values": []float64{0.2, 1.4, 4.8, 9.6, 12.3}},
			{"name": "replica_count", "window": "14:00-14:05", "values": []int{3, 3, 7, 12, 12}},
		},
		"annotations": []string{"autoscaler doubled replicas twice within three minutes"},
	}
}

func demoDatabaseMetrics() map[string]any {
	return map[string]any{
		"service": "orders-db",
		"series": []map[string]any{
			{"name": "active_connections", "window": "14:00-14:05", "values": []int{62, 88, 100, 100, 100}},
			{"name": "connection_utilization", "window": "14:00-14:05", "values": []string{"0.62", "0.88", "1.0", "1.0", "1.0"}},
			{"name": "cpu_utilization", "window": "14:00-14:05", "values": []string{"low (18%)", "low (21%)", "low (23%)", "low (22%)", "low (23%)"}},
		},
		"annotations": []string{"connection limit reached while cpu stayed low"},
	}
}

func demoInfrastructureMetrics() map[string]any {
	return map[string]any{
		"service": "production-cluster",
		"series": []map[string]any{
			{"name": "node_count", "window": "14:00-14:05", "values": []int{6, 6, 8, 9, 9}},
			{"name": "pod_pending_count", "window": "14:00-14:05", "values": []int{0, 0, 2, 0, 0}},
			{"name": "network_throughput_mbps", "window": "14:00-14:05", "values": []int{410, 980, 1620, 1710, 1690}},
		},
	}
}
