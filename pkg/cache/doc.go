// Package cache keeps proxied image bodies so repeated grid renders do not
// go back to the CDN. Entries are keyed by the SHA-256 of the source URL.
package cache
