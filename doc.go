// Package musicai is an autonomous orchestrator for long-running,
// rate-limited GPU compute jobs. It drives a generation job through its
// lifecycle on an external compute platform, rotates across a pool of
// credentialed accounts to fairly spend their weekly quotas, archives
// produced artifacts to a remote object store, and survives process
// restarts through a checksummed, atomically-written state file.
//
// The orchestration core lives in the engine package. Everything the
// core talks to across a network boundary is an interface in the
// platform package; adapters for Kaggle, Google Drive, Telegram and
// Spotify live under platform/.
//
// # Quick Start
//
//	cfg := musicai.DefaultConfig()
//	eng, err := engine.New(cfg,
//	    engine.WithCompute(kaggleClient),
//	    engine.WithObjectStore(driveClient),
//	    engine.WithNotifier(telegramBot),
//	)
//	if err != nil { ... }
//	err = eng.Run(ctx)
//
// # Design
//
// One job is in flight at a time. A cycle runs to completion before the
// next begins; every state transition is persisted immediately so a
// crash resumes at the last committed step. External calls never throw
// past the retry boundary: they come back as tagged errors whose
// FailureKind drives retry, rotation and automated recovery decisions.
package musicai
