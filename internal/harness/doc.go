// Package harness provides conformance testing for the door controller.
//
// A scenario scripts the two distance sensors cycle by cycle, optionally
// switches the controller between normal and race mode, and asserts on the
// journal the run leaves behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	cycles: 4
//	readings:
//	  sensor1: [1500000]
//	  sensor2: [1500000, 1500000, 2000000]
//	inputs:
//	  - cycle: 2
//	    race: true
//	thresholds:
//	  tolerance: 20
//	assertions:
//	  - type: trace_contains
//	    step: { kind: transition, to: EMERGENCY }
//	  - type: final_state
//	    state: EMERGENCY
//	    outputs: { brake_status: true }
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: Verifies a journal step matches the given fields
//   - trace_order: Verifies transitions enter the listed states in order
//   - trace_count: Verifies exactly N journal steps match the given fields
//   - final_state: Verifies the final controller state and output levels
//   - diagnostic: Verifies a diagnostic message was reported
//
// # Deterministic Testing
//
// Every run is reproducible so that golden snapshots compare byte for byte.
// The harness uses:
//   - A fixed run id (from scenario.run_id or "test-run-default")
//   - Cycle-indexed sensor readings instead of wall-clock sampling
//   - In-memory SQLite database (isolated per run)
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/normal_toggle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
