// Cacheproxy is a multi-threaded forward HTTP proxy that caches upstream
// responses by request URL.
//
// Each accepted connection is queued to a fixed pool of workers. A worker
// reads one request, answers it from the in-memory LRU cache when it can, and
// otherwise forwards the raw request to port 80 of the named host, caches
// the reply and relays it.
//
// Usage:
//
//	# Listen on 8080 with 4 workers and room for 128 cached responses
//	cacheproxy 8080 4 128
//
//	# Same, with a config file and the admin endpoint
//	cacheproxy 8080 4 128 --config cacheproxy.yaml --metrics-listen 127.0.0.1:9090
//
//	# Record connection outcomes and inspect them later
//	cacheproxy 8080 4 128 --journal data/journal.db
//	cacheproxy journal --path data/journal.db --limit 20
//
//	# Show version information
//	cacheproxy version
package main

import "os"

func main() {
	os.Exit(Execute())
}
