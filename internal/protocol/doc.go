// Package protocol owns FIX tag/value messages.
//
// Ownership boundary:
// - message construction and kind constructors
// - schema-guided parsing of raw tag/value bytes
// - envelope maintenance (body length, checksum, header ordering)
//
// Field storage lives in the group package and kind metadata in schema.
package protocol
