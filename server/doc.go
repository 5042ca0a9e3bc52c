// Package server exposes the fitting pipeline over HTTP with a chi router.
//
// Routes:
//
//	GET  /health                 liveness probe
//	GET  /v1/platforms           platform descriptors
//	POST /v1/fit                 derive a request; persists it when a store is configured
//	GET  /v1/snapshots           newest persisted projections (store only)
//	GET  /v1/snapshots/{id}      one persisted projection (store only)
//
// Request errors map to status codes through their stimerr class:
// validation, achievability and buffer overflow give 422; configuration
// problems give 500.
package server
