// Package cache stores provider results so that repeated translations and
// speech requests do not hit the network. It has an in-memory LRU (L1) and an
// optional zstd-compressed disk cache (L2).
package cache
