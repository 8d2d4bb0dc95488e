// Package config parses CUE analysis documents for PlantPulse.
//
// An analysis document declares client settings and one analysis input
// per machine:
//
//	settings: {
//	    compute: base_url: "http://oee-compute:8750"
//	    store: path:       "/var/lib/plantpulse/history.db"
//	}
//
//	machines: "press-04": {
//	    window: {start: "2026-03-02T06:00:00Z", end: "2026-03-02T14:00:00Z"}
//	    time_model: planned_production_time: value: 28800
//	    production: {
//	        total_units: value:    1000
//	        good_units: value:     950
//	        scrap_units: value:    30
//	        reworked_units: value: 20
//	    }
//	    cycle_time: ideal_cycle_time: value: 25.2
//	}
//
// Scalar inputs carry provenance: a plain {value: N} is explicit, and a
// machine block may include a "derive" Starlark script whose outputs
// fill unset inputs as inferred values:
//
//	derive: """
//	shift_seconds = 8 * 3600
//	planned_production_time = shift_seconds - 30 * 60
//	"""
//
// Parsing validates against built-in CUE schemas and struct tags;
// errors are collected with file positions rather than aborting on the
// first problem.
package config
