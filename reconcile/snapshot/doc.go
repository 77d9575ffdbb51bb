/*
Package snapshot provides I/O operations for collected states of Tipbot
contract.

Snapshot keeps contract state along with all its storage items at some
height. It allows to audit the ledger offline and to compare ledger states
taken at different heights.

The package works with snapshots stored in the file system using
human-readable encoding.
*/
package snapshot
