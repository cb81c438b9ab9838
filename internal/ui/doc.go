// Package ui implements the account dashboard using bubbletea's Elm architecture.
//
// The TUI follows the composed session context rather than polling it:
//  1. [DashboardView] : spinner while the session is restored, then identity, plan and credits
//  2. [ProjectListView] : the user's projects
//  3. [ConfirmView] : confirm an export and what it will cost
//  4. [ExportView] : live progress from the export engine
//  5. [ResultView] : video URL or the failure, with an upgrade hint when credits ran out
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Snapshots arrive through [auth.Context.Subscribe]; a sign-out from anywhere returns the UI to the dashboard.
//
// Keys: r refreshes credits, o signs out, p lists projects, q quits.
package ui
