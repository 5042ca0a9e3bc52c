// Command pulsefit fits stimulation requests to a hardware platform,
// renders the resulting device sequence and serves the pipeline over HTTP.
//
//	pulsefit platforms
//	pulsefit fit --platform nic --phase 43 --gap 8 --rate 442 -e 3 -a 100
//	pulsefit render --platform rib2 --phase 25 --gap 5 --rate 1000 -e 1 -a 100 --format json
//	pulsefit schedule --platform nic --rate 10 --duration 1 --jitter 20000 --seed 7 -e 1 -a 50
//	pulsefit serve --port 8080 --db-url pulsefit.db
//
// Flags fall back to environment variables (PULSEFIT_PLATFORM, DATABASE_URL,
// DATABASE_TYPE, PORT), which may also be set in a .env file.
package main

import (
	"os"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
