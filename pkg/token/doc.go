// Package token signs and verifies HS256 access tokens in the format the
// hosted auth provider issues (sub, email, role and aud=authenticated).
// The functions endpoints verify them; the local development provider
// signs them so both paths share one format.
//
// Seal and Open carry small typed payloads, such as email confirmation
// links, behind an HMAC tag.
package token
