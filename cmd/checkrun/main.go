// checkrun triggers one batch against a running API, the same way the
// external cron does. Useful for smoke-testing a deployment.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	secret := os.Getenv("VIGIL_CRON_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "VIGIL_CRON_SECRET is required")
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodGet, api+"/api/cron/check", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad API_BASE:", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var out struct {
		Success   bool   `json:"success"`
		Checked   int    `json:"checked"`
		Timestamp string `json:"timestamp"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintln(os.Stderr, "bad response:", resp.Status)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		fmt.Fprintf(os.Stderr, "check run failed: %s (%s)\n", out.Error, resp.Status)
		os.Exit(1)
	}
	fmt.Printf("checked %d monitors at %s\n", out.Checked, out.Timestamp)
}
