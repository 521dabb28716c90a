// Package gateway implements the operation service between the HTTP surface
// and the provider adapter. Each operation performs one provider call,
// extracts the single field of interest into a normalized result, and
// translates adapter failures into unified error codes for the HTTP layer.
package gateway
