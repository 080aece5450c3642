// Package api implements the HTTP API for Inbotiq Core.
//
// This package provides:
//   - Signup, login, logout and identity endpoints under /api/auth
//   - Bearer token authentication and role gating middleware
//   - Origin admission (CORS) enforced before any handler runs
//   - Middleware stack (request ID, logging, recovery, body size limit)
//   - A listener that walks to the next port when the requested one is taken
//
// # Response Envelope
//
// Every error is written as {"success": false, "message": "..."} with the
// matching status code. Messages never carry internal error detail.
//
// # Security
//
// Tokens are HS256 JWTs issued by the auth service. Logout revokes the
// token's jti until its own expiry; revoked tokens fail authentication.
// Prometheus metrics and the audit trail are served to Admin principals only.
package api
