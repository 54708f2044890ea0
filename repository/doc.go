// Package repository provides a generic repository built on bun for CRUD
// operations, equality search with validated sort fields, partial updates
// from maps or struct payloads, pagination, upserts and transactions.
//
// Errors carry errx codes: OBJECT_DOES_NOT_EXIST for missing rows,
// INVALID_QUERY for unknown fields or bad payloads, and OBJECT_ALREADY_EXISTS
// for unique key conflicts. Use IsNotFound, IsInvalidQuery and
// IsAlreadyExists to tell them apart.
package repository
