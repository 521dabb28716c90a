// Package api exposes the REST surface of the gateway: the three operation
// endpoints, the health probe, and the request-scoped observability
// middleware that feeds the access log and metrics.
package api
