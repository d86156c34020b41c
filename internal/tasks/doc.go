// Package tasks holds the operations the CLI and the terminal shell share: refreshing and
// mutating the earnings list, projecting it for display, and running bulk imports.
//
// # Imports
//
// [ImportCoordinator] sends one create request per CSV row, strictly in file order, and never
// more than one at a time. Each row ends up with an outcome:
//
//   - "Success" when the backend accepted it
//   - "Error: Invalid amount - <reason>" when the amount could not be converted (no request is sent)
//   - "Error: <message>" for any other failure
//
// Session expiry is the exception: it aborts the whole run, the remaining rows are not
// attempted and no results file is written. After a completed run the outcomes are written to
// "<stem>_results.csv" next to the input and the list is refreshed.
//
// # Progress Reporting
//
// Progress is published on a caller-supplied channel as [ProgressUpdate] values. Sends block
// until the receiver takes them or the context is cancelled, so a UI sees every row in order.
//
// # Earnings View
//
// [EarningsView] filters the last fetched list by search text and creation date, sorts it by
// one column and tracks the selection used for bulk deletes.
package tasks
