// Package preflight provides readiness checks for the filesystem paths and
// stores labwatch depends on.
//
// These checks run in two contexts:
//   - The daemon runner logs RunAll results at startup so misconfiguration
//     shows up before the first file arrives.
//   - The CLI "labwatch check" command prints them and exits non-zero when
//     any check fails.
//
// Optional features are only checked when configured.
package preflight
