// Package storage persists one JSON document per identity and the
// screenshots taken while collecting it.
//
// Documents are written through a temporary file and renamed into place, so
// a reader never sees a partial document. A document counts as an attempt
// marker when it is at least AttemptMarkerSize bytes and carries a profile
// field or a non-empty list; batch runs use that to skip identities.
package storage
