// Package hash holds the one-way functions authd stores instead of secrets:
// adaptive salted hashes for account passwords (bcrypt, argon2id) and a keyed
// HMAC for OTP codes.
package hash
