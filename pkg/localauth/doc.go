// Package localauth is an in-memory authentication provider for local
// development and tests.
//
// A Directory holds the accounts of the whole process with bcrypt password
// hashes and mints access tokens with a token.Signer, so the functions
// endpoints accept them exactly like hosted provider tokens. Each view gets
// its own Client, which implements authstate.Store and delivers session
// changes synchronously in the order they happen.
//
// OAuth is not available locally; SignInWithOAuth returns ErrOAuthUnavailable.
package localauth
