// Package oee defines the data/computation contract of the OEE analysis
// engine: the provenance-tagged input model submitted to the remote
// compute service, the structured result model it returns (core metrics,
// loss tree, assumption ledger, derived analyses), and the coded error
// type shared across the client.
//
// The package holds no formulas. All numerical computation is owned by
// the compute boundary; these types exist so every scalar keeps its
// provenance and every output keeps its formula trace.
package oee
