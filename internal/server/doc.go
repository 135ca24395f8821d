// Package server exposes the local monitoring HTTP endpoint: health,
// client status and Prometheus metrics.
package server
