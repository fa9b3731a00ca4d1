// Package main is a tiny liveness probe for container images that ship
// without curl or wget. It exits 0 when the ops server answers /health.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const requestTimeout = 5 * time.Second

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	// os.Exit skips defers, so close inline.
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "health check returned status %d\n", resp.StatusCode)
		os.Exit(1)
	}
}
