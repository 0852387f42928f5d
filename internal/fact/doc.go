// Package fact provides the immutable, content-addressed fact model.
//
// A Fact is identified by a Reference: its type name plus the base64
// SHA-512 digest of its canonical JSON form. The canonical form is the
// wire and storage encoding, so every implementation that follows the
// same rules computes the same reference for the same fact.
//
// Key constraints:
//   - Fields are sorted by name and predecessors by role (UTF-16 order)
//   - Field values are strings, numbers, or booleans only
//   - A Graph always lists predecessors before their successors
//
// This package imports nothing internal.
package fact
