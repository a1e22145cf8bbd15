// Package inventory is the synchronized data-access layer over the remote
// grid store. It resolves external user ids to rows through the metadata
// table, serves reads cache-aside, and applies writes write-through so a
// successful update is immediately visible without another store call.
//
// All row reads funnel through one batched range fetch, and all row writes
// funnel through one batched update, so a burst of user activity costs a
// fixed number of rate-limited network calls.
package inventory
