package model

import "time"

// User represents a storefront customer as stored in the `users` table.
// The table is owned by the user directory subsystem; this service only
// reads it. The json tags are omitted because these structs are used
// internally by the repository layer; handlers define separate response
// types with appropriate JSON tags.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  TelegramChatID      – chat id used for bot notifications (0 when unknown).
//  Name                – display name shown in notifications.
//  ReferralCode        – the user's own public code, issued once, unique.
//  ReferrerID          – direct parent in the referral graph (nil for roots).
//  AppliedReferralCode – the code the user redeemed; permanent once set.
//  CreatedAt           – timestamp of creation.
type User struct {
	ID                  uint64    // users.id
	TelegramChatID      int64     // users.telegram_chat_id
	Name                string    // users.name
	ReferralCode        string    // users.referral_code
	ReferrerID          *uint64   // users.referrer_id (nullable)
	AppliedReferralCode *string   // users.applied_referral_code (nullable)
	CreatedAt           time.Time // users.created_at
}

// HasReferrer reports whether the user can possibly have an ancestor
// chain: either a resolved referrer id or an applied code that may
// still resolve to one.
func (u *User) HasReferrer() bool {
	return u.ReferrerID != nil || (u.AppliedReferralCode != nil && *u.AppliedReferralCode != "")
}
