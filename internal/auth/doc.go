// Package auth issues and verifies the bearer tokens that protect the
// robotctl HTTP API.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. Each carries a
// subject (who the token was minted for), a role, and a unique token ID.
// Roles map statically to permissions:
//
//	viewer:   tools:read, calls:read
//	operator: viewer permissions plus tools:invoke
//
// There are no user accounts; tokens are minted out of band with
// "robotctl token" and verified by signature and expiry only.
package auth
