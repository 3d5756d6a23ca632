// Package codec provides the field-level decoders shared by the EVT record
// parser: timestamps, security identifiers, wide strings and opaque payloads.
//
// Everything in this package is a pure function over a byte slice. The caller
// owns bounds-checking against the enclosing record; the codecs additionally
// never read past the slice they are handed, so a hostile offset or length
// field inside a record can at worst truncate a value, never escape it.
//
// # Timestamps
//
// EVT stores times as 32-bit whole seconds since the Unix epoch, already in
// UTC. A zero value means "no timestamp" and decodes to the zero time.Time
// rather than 1970-01-01.
//
// # Security Identifiers
//
// A SID is a variable-length structure:
//
//	[Revision(1)][SubAuthorityCount(1)][Authority(6, big-endian)][SubAuthority(4, little-endian)...]
//
// The rendered form is S-<revision>-<authority>-<sub1>-...-<subN>. A buffer
// whose length is inconsistent with 8 + 4*SubAuthorityCount yields no value
// at all; a half-parsed SID string is worse than an absent one.
//
// # Wide Strings
//
// Strings are null-terminated sequences of UTF-16LE code units. When no
// terminator exists before the enclosing field ends, the string is truncated
// at the boundary and the caller is told so.
package codec
