// Package journal is an engine extension that bridges lifecycle events
// to an append-only activity trail.
//
// Every job, account, recovery, and maintenance hook emits a structured
// event through the [Recorder] interface. The extension assigns
// severity levels (info for normal operations, warning for rejections
// and recoveries, critical for quota exhaustion and error entry) and
// metadata (prompt, account, elapsed time, errors).
//
// The bundled [FileRecorder] appends events as JSON lines, giving the
// operator a replayable history of what the orchestrator did and when:
//
//	rec, _ := journal.NewFileRecorder("musicaid.journal")
//	engine.WithExtension(journal.New(rec))
//
// # Selective filtering
//
//	journal.New(rec,
//	    journal.WithActions(
//	        journal.ActionJobAbandoned,
//	        journal.ActionQuotaExhausted,
//	        journal.ActionErrorEntered,
//	    ),
//	)
package journal
