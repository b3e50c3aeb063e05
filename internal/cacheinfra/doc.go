// Package cacheinfra holds the key-value store clients used by the query cache:
// an in-process store on top of sturdyc and a Redis store on top of go-redis.
//
// Both satisfy the same protocol: Get reports absence as (nil, false, nil),
// Set takes a per-key TTL and Delete on a missing key is a no-op.
package cacheinfra
