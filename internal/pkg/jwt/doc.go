// Package jwt issues and verifies stateless session tokens.
//
// Tokens are HS512-signed and carry the account id and email. There is no
// revocation list: a token stays valid until it expires.
package jwt
