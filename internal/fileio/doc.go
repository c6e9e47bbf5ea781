// Package fileio moves outline documents between container files, swap
// workspaces and document stores.
//
// It implements four operations:
//   - Save: dump a store twice, verify both dumps hash identically, copy one
//     onto the target and verify the committed file.
//   - Open: back up a container once per modification time, extract it into a
//     workspace under the data directory and record where it came from.
//   - Import: sniff a file as a native record stream or a legacy plain-tree
//     JSON array and turn it into a store or a canonical document.
//   - Destroy: remove a store and its window-state side file.
//
// # Errors
//
// Every failure is an *Error whose Kind is IO, INTEGRITY or IMPORT. Use IsIO,
// IsIntegrity and IsImport to classify. Nothing in this package retries.
//
// # Concurrency
//
// Operations on distinct paths may run concurrently. Concurrent saves to the
// same target path are not safe: their temp files and the final copy can
// interleave. Callers must serialise them.
package fileio
