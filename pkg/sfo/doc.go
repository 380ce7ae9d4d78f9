// Package sfo reads, edits and rewrites SFO parameter files.
//
// An SFO file has four regions, all little-endian:
//
//	[Header(20)][IndexTable(16 * entries)][KeyTable][DataTable]
//
// The index table holds one row per key with the key offset, the value
// format and the value's used and reserved lengths. Keys are zero-terminated
// UTF-8 strings. Values are stored by format: 0x0404 as uint32, 0x0204 as a
// zero-terminated UTF-8 string, and 0x0004 as raw bytes unless the key is
// known to hold a uint64.
//
// A Document is loaded once, edited through Edit, which validates each value
// against its entry, and written with Export. Export always produces a fresh
// layout with keys in sorted order, so repeated exports of the same document
// are byte-identical.
package sfo
