// Package preflight provides readiness checks for the filesystem paths and
// external tools clipfit depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to accept work while a
//     required directory is unusable.
//   - The CLI "clipfit doctor" command renders every Result and dependency
//     Status so operators can fix their environment before compressing.
package preflight
