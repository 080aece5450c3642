// Package auth provides credential storage, session tokens and role checks
// for Inbotiq Core.
//
// It implements a two-role model (User, Admin) with:
//   - Argon2id password hashing with a configurable work factor
//   - HS256 session tokens carrying subject, role and a random jti
//   - An in-process revocation list with optional SQLite or PostgreSQL
//     write-through, so logout survives restarts
//   - Authentication events fanned out to pluggable sinks
//
// Unknown email and wrong password are reported identically as
// ErrInvalidCredentials, and both paths run one Argon2id verification.
package auth
