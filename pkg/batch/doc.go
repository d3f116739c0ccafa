// Package batch drives a download run: it collects URLs from a provider,
// skips those whose destination already exists, and downloads the rest in
// fixed-size concurrent groups with a bounded per-URL retry.
//
// Groups are not a sliding window. Group N+1 starts only after every
// download of group N has finished, so at most BatchSize downloads are in
// flight at any time.
package batch
