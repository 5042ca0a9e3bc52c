// Package pulsetrain fits electrical-stimulation pulse trains to the
// discrete timing and amplitude grid of neural-prosthesis research hardware.
//
// 🚀 What is pulsetrain?
//
//	A small library plus CLI and HTTP facade that brings together:
//		• Quantization: best rational fit of a period onto a step grid
//		• Pulse shapes: biphasic, triphasic, precision-triphasic,
//		  quadraphasic and two-pulse encodings in hardware steps
//		• Platforms: free-running and fixed-buffer device descriptors
//		• Scheduling: plain, modulated, jittered and alternating trains
//		• Snapshots: immutable request → fit → train derivations
//
// Packages:
//
//	quantize/ — Solve, StepGrid and rounding helpers
//	shape/    — pulse topologies and the breakpoint encoder
//	platform/ — hardware descriptors and amplitude quantization
//	train/    — train scheduler, device sequence, electrodogram
//	stim/     — request validation, platform fitter, snapshots
//	render/   — text and JSON sinks for device sequences
//	store/    — snapshot persistence (sqlite, postgres)
//	server/   — HTTP API over the pipeline
//	stimerr/  — sentinel error classes shared by all packages
//
// Quick example:
//
//	snap, err := stim.Derive(platform.NIC, stim.Request{
//		Topology: shape.Biphasic, PhaseUs: 43, GapUs: 8,
//		Electrodes: []int{3}, Amplitudes: []float64{100},
//		RatePPS: 442, DurationS: 1,
//	})
//	// snap.Fit().RatePPS ≈ 442.01, snap.Sequence() holds one periodic command.
//
//	go install github.com/katalvlaran/pulsetrain/cmd/pulsefit@latest
package pulsetrain
