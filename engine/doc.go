// Package engine wires the orchestration subsystems together and runs
// the cycle loop that drives track generation end to end.
//
// The engine owns the single-writer orchestration state: each cycle
// loads it, applies quota period resets, honors the run-status gates,
// fires whichever periodic side tasks are due, advances the job state
// machine by one step, and applies intervention logic when parked in
// the error status. Every transition is persisted before the cycle
// moves on, so a crash resumes exactly where the last save left off.
//
// # Building an Engine
//
//	eng, err := engine.New(cfg,
//	    engine.WithCompute(kaggleClient),
//	    engine.WithObjectStore(driveClient),
//	    engine.WithNotifier(telegramNotifier),
//	    engine.WithExtension(observability.NewMetricsExtension()),
//	)
//
// # Running
//
//	// Blocks until ctx is cancelled.
//	err := eng.Run(ctx)
//
// Generation starts parked; call StartRun to set the run status to
// running, and StopRun to request a cooperative stop after the current
// step.
package engine
