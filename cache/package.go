/*
Package cache decides, for each balance request, whether to trust the shared
record, honour an upstream-mandated cool-down, or perform a fresh remote
lookup, and persists the outcome to the shared store and the fallback file.

Consistency between processes is last-writer-wins: two processes that both
observe a stale record may both call the remote API and both write, with no
merge. That is accepted for a low-frequency single-account cache. An
advisory lock can be enabled as a Locker strategy without changing
observable behaviour.
*/
package cache
