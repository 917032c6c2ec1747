// Package preflight provides readiness checks for the filesystem paths and
// external services vidsub depends on.
//
// The "vidsub tools status" command and the /api/tools endpoint report these
// next to the media tool status. Checks never mutate anything.
package preflight
