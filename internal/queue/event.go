// Package queue defines message payloads exchanged over the message broker.
package queue

// CommissionCreditedQueue is the durable queue commission events flow
// through on their way to the notification consumer.
const CommissionCreditedQueue = "commission.credited"

// CommissionCreditedEvent is published once per ledger entry after a
// distribution commits. It carries enough information for the
// notification consumer to message the referrer without querying the
// primary database.
type CommissionCreditedEvent struct {
	TransactionID  string `json:"transaction_id"`
	EntryID        uint64 `json:"entry_id"`
	OrderID        uint64 `json:"order_id"`
	ReferrerID     uint64 `json:"referrer_id"`
	ReferrerChatID int64  `json:"referrer_chat_id"`
	ReferrerName   string `json:"referrer_name"`
	BuyerName      string `json:"buyer_name"`
	Level          int    `json:"level"`
	Amount         string `json:"amount"`
	CreditedAt     string `json:"credited_at"`
}
