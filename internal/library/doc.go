// Package library derives video assets from the on-disk library and keeps
// their JSON sidecars.
//
// The filesystem is the only source of truth. Every listing or scan walks
// the videos directory again, builds a VideoAsset per allow-listed file and,
// when scanning, synthesizes metadata for files that do not yet have a
// sidecar. A file with a sidecar is never synthesized again, so repeated
// scans leave existing sidecars untouched.
//
// Layout:
//
//	videos/<category>/<name>.<ext>     source file
//	videos/<category>/<name>.json      sidecar metadata
//	thumbnails/<category>/<name>.jpg   thumbnail still
package library
