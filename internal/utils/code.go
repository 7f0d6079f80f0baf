package utils

import "crypto/rand"

// referral codes use an unambiguous upper-case alphabet
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of generated referral codes.
const CodeLength = 8

// NewReferralCode returns a random 8-character referral code. Callers
// must handle the unlikely unique-key collision on insert by retrying.
func NewReferralCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
