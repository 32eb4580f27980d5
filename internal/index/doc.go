// Package index manages the on-disk instrument index and historical bar files.
//
// Files are rebuilt once per trading day: a file modified before the most
// recent 17:00 reset is stale. Index files are CSV, read and written with
// gocsv and replaced atomically.
package index
