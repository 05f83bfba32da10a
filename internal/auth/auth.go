// Package auth provides the users bounded context: managers and workers,
// sign-in and JWT issuance. Other modules depend on the narrow lookups the
// service exposes (role resolution, manager listing, display names), never
// on the users table directly.
package auth
