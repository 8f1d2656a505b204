/*
Package shm provides a fixed-capacity named byte buffer shared across every
process on the host, backed by a POSIX shared memory segment under /dev/shm.

The store offers no internal synchronisation: two processes writing at the
same time race at the byte level, and a reader may observe a partially
written buffer. This is a deliberate, documented last-writer-wins contract;
payloads are short and writes are low-frequency. Callers that want stronger
guarantees should layer an advisory lock on top rather than expecting the
store to provide one.
*/
package shm
