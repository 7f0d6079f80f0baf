// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrCodeNotFound indicates that a referral code does not
// belong to any user, while ErrCodeAlreadyApplied signals that a user
// tried to bind a second code after the first binding became permanent.
package repository

import "errors"

// ErrUserNotFound is returned when a user id does not exist in the
// directory. Handlers should translate this into an HTTP 404 response.
var ErrUserNotFound = errors.New("user not found")

// ErrOrderNotFound is returned when an order id does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrCodeNotFound is returned when a referral code does not resolve to
// any user's public code.
var ErrCodeNotFound = errors.New("referral code not found")

// ErrSelfReferral is returned when a user attempts to redeem their own
// public referral code.
var ErrSelfReferral = errors.New("cannot use own referral code")

// ErrCodeAlreadyApplied is returned when a user who already redeemed a
// code attempts to bind another one. Bindings are permanent.
var ErrCodeAlreadyApplied = errors.New("referral code already applied")

// ErrOperatorNotFound is returned when no operator account matches the
// supplied email during admin login.
var ErrOperatorNotFound = errors.New("operator not found")
