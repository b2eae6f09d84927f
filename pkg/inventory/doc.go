// Package inventory builds content-addressed descriptions of a flat directory
// and computes which files a peer is missing or holds in a stale version.
package inventory
