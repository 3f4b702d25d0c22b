// Package library publishes compressed videos into the user's media library.
//
// Publishing copies the file into the library directory and records it in a
// pebble-backed catalog. Two profiles exist, selected by the platform
// capability table:
//
//   - pending: insert a catalog record marked pending, copy the bytes, then
//     clear the pending flag. Readers of the catalog never see a finalized
//     entry whose file is incomplete.
//   - direct: copy the bytes, then record ("scan") the finished file.
package library
