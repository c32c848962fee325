// Package preflight provides readiness checks for the external tools,
// endpoints, and filesystem paths that dubshorts depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check so a
//     misconfigured host is visible before the first scheduled run.
//   - The CLI "dubshorts status" command prints RunAll and CheckSystemDeps
//     results as a readiness table.
//
// Network checks are skipped when the corresponding endpoint is unset.
package preflight
