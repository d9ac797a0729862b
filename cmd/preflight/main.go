// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cronSecret := strings.TrimSpace(os.Getenv("VIGIL_CRON_SECRET"))
	apiKeys := strings.TrimSpace(os.Getenv("VIGIL_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("VIGIL_ADDR"))
	db := strings.TrimSpace(os.Getenv("VIGIL_DATABASE_URL"))
	origins := strings.TrimSpace(os.Getenv("VIGIL_ALLOWED_ORIGINS"))

	if cronSecret == "" {
		fail("VIGIL_CRON_SECRET is empty (the cron trigger will reject everything).")
	}
	if apiKeys == "" {
		warn("VIGIL_API_KEYS is empty — the manual trigger is open to anyone.")
	}
	if strings.Contains(apiKeys, " ") {
		warn("VIGIL_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
	}

	if addr == "" {
		warn("VIGIL_ADDR is empty; the default :8080 will be used.")
	} else {
		ok("VIGIL_ADDR=" + addr)
	}

	if db == "" {
		warn("VIGIL_DATABASE_URL empty — API will use in-memory stores; results vanish on restart.")
	} else {
		ok("VIGIL_DATABASE_URL present")
	}

	if origins == "" {
		warn("VIGIL_ALLOWED_ORIGINS empty — cross-origin browsers fall back to the default.")
	} else {
		ok("VIGIL_ALLOWED_ORIGINS=" + origins)
	}

	ok("preflight passed")
}
