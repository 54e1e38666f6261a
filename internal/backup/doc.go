// Package backup implements the snapshot lifecycle engine behind tarkeep.
//
// The engine turns a source directory into an immutable, timestamp-named,
// compressed tar archive in a destination directory, seals it with a content
// digest sidecar, verifies the seal, and applies grandfather-father-son
// retention so the destination holds a bounded set of daily, weekly and
// monthly representatives.
//
// Core components:
//
//   - RunLock: advisory PID-file mutex serializing all destination mutation
//     across processes, with stale-owner reclamation
//   - ArchiveBuilder: exclusion-filtered, compressed tar packaging with a
//     deterministic timestamp naming scheme
//   - IntegritySealer / Verifier: digest sidecar creation and the
//     checksum-plus-structural verification pass
//   - RetentionRotator: the GFS bucket classification that decides which
//     historical archives survive
//   - RestoreExecutor: extraction of a chosen archive into a target directory
//   - Manager: the sequential pipeline running all of the above inside one
//     lock window
//
// Two invariants shape the design. Filenames are the source of truth: the
// creation instant of every archive is parsed from its name through one
// shared timestamp module, never read from filesystem metadata. And the
// engine is fail-safe against unrecognized files: anything matching the
// naming scheme whose timestamp does not parse is permanently exempt from
// rotation.
//
// All components honor a pipeline-wide dry-run mode that performs no
// mutating filesystem action while producing the same log narrative and
// return values as a real run.
package backup
