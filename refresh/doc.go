// Package refresh owns the in-memory refresh-token families: issuance, single-use
// rotation, revocation and replay detection.
//
// # Families and tombstones
//
// Every record ever issued to a user stays in that user's family in issuance order.
// Revocation and rotation set RevokedAt and never delete, so a token presented after
// it was rotated away is recognised as reused instead of unknown.
//
// # Locking
//
// A store-wide RWMutex guards the user map and the global token index. Each family has
// its own mutex held for the whole read-modify-write of Rotate and Revoke, which keeps
// one user's operations serialized while other users proceed. Nothing blocks on I/O
// under either lock.
//
// # What this package must NOT do
//
//   - Persist records or coordinate with other processes.
//   - Import tokenauth, jwt, or any transport package.
//   - Hand out pointers into its state; callers only receive Record copies.
package refresh
