// Package storage is the key-value persistence layer: a small Store
// interface with file-backed and in-memory implementations, plus typed
// repositories for statistics, history and the verification schedule.
//
// Stored field names follow the EmailZen browser extension's
// chrome.storage schema, so rules and statistics exported from the
// extension can be imported without translation.
package storage
