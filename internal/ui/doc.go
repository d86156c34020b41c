// Package ui implements the interactive admin console using bubbletea's Elm architecture.
//
// The shell moves between a few views:
//  1. [LoginView] : environment, email and password (huh form); also shown after expiry or logout
//  2. [DashboardView] : the earnings table with search, date filter, sorting, selection and totals
//  3. [AddView] : add one earning by song id or ISRC
//  4. [ConfirmDeleteView] : confirm a bulk delete of the selected rows
//  5. [ImportView] : pick a CSV file and watch the import row by row
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Remote calls run as commands. Session lifecycle changes arrive from a [services.Notifier]
// subscribed in [Run], so expiry observed by any operation returns the shell to the login view.
package ui
