// Package auth issues and checks the bearer tokens that guard the HTTP API.
//
// Tokens are HS256 JWTs signed with the shared secret from
// security.jwt.secret. Each carries a subject and a role; the role maps to a
// static permission set (viewer reads, operator also controls lamps and the
// session). There are no stored accounts.
package auth
