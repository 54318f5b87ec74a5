// Package snapshot saves and restores grid layouts as JSON files.
//
// Only the cells are kept. The upload quota and the deletion selection belong
// to a single session and are never written; a restored layout always starts
// with an unused quota.
package snapshot
