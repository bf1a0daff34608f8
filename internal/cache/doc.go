// Package cache provides a bounded in-memory LRU for decoded content and
// timing labels, and a zstd-compressed disk cache for fetched documents.
// Tiered combines the two for remote content stores.
package cache
