// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account registration and session authentication.
//
// # Domain Types
//
//   - User - a stored account; never serialized directly
//   - UserView - the user-safe projection returned to clients
//   - NewUser - creation input, checked with NewUser.Validate
//   - Claims - the decoded payload of a session token
//
// # Components
//
//   - PasswordHasher - argon2id hashing, with bcrypt hashes still verifiable
//   - TokenService - HS256 session tokens with a fixed lifetime
//   - UsernameGenerator - random 8-character usernames checked against the store
//   - Service - register, login, logout and whoami
//
// Tokens are stateless. Logout only tells the client to discard its
// credential; an issued token stays valid until it expires.
package auth
