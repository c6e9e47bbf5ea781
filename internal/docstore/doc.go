// Package docstore provides SQLite-backed storage for one outline document.
//
// A store lives in its own directory (outline.db plus SQLite side files), so
// that a workspace extracted from a container can be opened in place and a
// store can be destroyed by removing its directory.
//
// The store holds:
//   - Nodes: one row per card (id, parent_id, position, content)
//   - Meta: db_name and update_seq
//
// # Record stream
//
// Dump and Load exchange the store's contents as newline-delimited JSON:
//
//	{"version":"1","db_type":"sqlite3","start_time":"...","db_info":{"db_name":"...","doc_count":N,"update_seq":N}}
//	{"docs":[{"_id":"0","position":0,"content":""}, ...]}
//	{"seq":N}
//
// The header serialises start_time immediately before db_info. Digest masking
// depends on that ordering. Everything after the header is written in a
// deterministic order (id ASC COLLATE BINARY), so two dumps of an unchanged
// store differ only in start_time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package docstore
