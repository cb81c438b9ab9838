// Package tasks runs the editor workflows that talk to the backend on behalf of a signed-in user.
//
// # Export
//
// [ExportEngine.Export] renders a project into a video:
//
//  1. Pre-flight: anonymous callers get [shared.ErrNotAuthenticated]; a free plan with no credits gets
//     [shared.ErrInsufficientCredits] and [ExportResult.UpgradeRequired] without any request being sent
//  2. Free plans take one credit optimistically, then POST /user/consume-credit
//  3. POST /video/generate with the project's media, stanzas and format
//  4. The entitlement is always re-read afterwards so the optimistic decrement is reconciled
//
// A 403 from either call marks the result UpgradeRequired. A 401 signs the account out.
//
// # Bulk Upload
//
// [ExportEngine.BulkUpload] sends media files through a small worker pool behind a [rate.Limiter].
// Each file succeeds or fails on its own; [BulkUploadResult.Apply] copies the server paths onto a project.
//
// # Progress Reporting
//
// Both operations report through a [ProgressUpdate] channel. Sends never block: when the channel is full
// the update is dropped.
package tasks
