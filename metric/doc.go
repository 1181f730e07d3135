// Package metric provides the Prometheus metrics registry for the
// fleet-server process.
//
// Components register their collectors under a service name, so metric
// names stay unique across the process and a component can be torn down
// without leaking collectors. A nil *Registry disables metrics: every
// component treats a nil registry as "metrics off" and keeps working.
package metric
