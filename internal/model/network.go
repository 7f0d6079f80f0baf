package model

import "time"

// ReferralEdge mirrors the `referral_edges` table. Edges are a snapshot
// of the resolved referral graph: one row per non-root user, rebuilt
// wholesale by the batch resolver on each admin-triggered rebuild and
// never maintained incrementally.
//
// Fields:
//  UserID     – the child user.
//  ReferrerID – the resolved direct parent.
//  Level      – distance from the nearest root, 1..3.
//  Path       – ordered id sequence from root to user, "->" separated.
//  IsActive   – whether the edge was present in the latest rebuild.
//  VerifiedAt – when the edge was last resolved.
type ReferralEdge struct {
	UserID     uint64    // referral_edges.user_id
	ReferrerID uint64    // referral_edges.referrer_id
	Level      int       // referral_edges.level
	Path       string    // referral_edges.path
	IsActive   bool      // referral_edges.is_active
	VerifiedAt time.Time // referral_edges.verified_at
}

// NetworkNode is one user's position in the resolved referral forest.
// Nodes are allocated once into an id-indexed arena by the batch
// resolver; Children pointers share that arena, so the whole forest is
// built without copying.
type NetworkNode struct {
	User     User
	Level    int            // 0 for roots, 1..3 below them
	Parent   *NetworkNode   // nil for roots
	Children []*NetworkNode
}

// NetworkSize returns the number of descendants below the node at any
// depth. Roots report the size of their entire subtree.
func (n *NetworkNode) NetworkSize() int {
	total := len(n.Children)
	for _, c := range n.Children {
		total += c.NetworkSize()
	}
	return total
}
