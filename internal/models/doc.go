// Package models defines the entities exchanged with the earnings API and the records the console keeps locally.
//
// The package contains two categories of types:
//
// 1. Remote data: owned by the backend, fetched and replaced wholesale
//   - [Earning] : A royalty earning as returned by the admin earnings endpoint
//
// 2. Import data: produced while bulk importing a CSV file
//   - [ImportRow] : One parsed input row (song id or ISRC plus a USD amount)
//   - [ImportOutcome] : The result recorded for a row after it was processed
//   - [ImportRun] : The aggregate of one import invocation
//   - [ImportRecord] : A persisted [ImportRun] with its bookkeeping metadata
//
// Persistent entities implement the [Model] interface; [Repository] defines the storage operations for them.
package models
