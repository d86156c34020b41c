// Package repositories implements SQLite persistence for the console's local state.
//
// Nothing stored here is authoritative: the backend owns every earning. The database holds
//   - [SnapshotRepository] : the last fetched earnings list per environment, replaced wholesale
//   - [ImportRunRepository] : the history of bulk imports with their per-row outcomes
//
// Import runs are numbered #1, #2, ... for the history listing. [NextSequence] bumps the
// counter in import_runs_sequence inside the same transaction as the run insert.
package repositories
