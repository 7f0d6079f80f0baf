// Package referral resolves the ancestor chains and the full referral
// forest that commission distribution and admin tooling are built on.
package referral

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/repository"
)

// MaxDepth caps how far up the ancestor chain attribution reaches.
// Levels beyond it are intentionally not rewarded.
const MaxDepth = 3

// userDirectory is the slice of UserRepo the resolver needs.
type userDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByReferralCode(ctx context.Context, code string) (model.User, error)
}

// ChainLink is one resolved ancestor: the referrer and their distance
// from the buyer, nearest first.
type ChainLink struct {
	Referrer model.User
	Level    int
}

// Resolver walks the referral graph. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	users userDirectory
	log   *zap.Logger
}

// NewResolver returns a Resolver reading users from the given directory.
func NewResolver(users userDirectory, log *zap.Logger) *Resolver {
	return &Resolver{users: users, log: log}
}

// ResolveChain returns the buyer's ancestor referrers, nearest first,
// up to MaxDepth levels. A missing referrer, a dangling referral code
// or a cycle truncates the chain early; none of these are errors, the
// chain is simply shorter.
func (r *Resolver) ResolveChain(ctx context.Context, buyer model.User) ([]ChainLink, error) {
	chain := make([]ChainLink, 0, MaxDepth)
	visited := map[uint64]bool{buyer.ID: true}
	current := buyer

	for level := 1; level <= MaxDepth; level++ {
		parent, ok, err := r.lookupParent(ctx, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if visited[parent.ID] {
			// Corrupted data: the chain loops back on itself. Stop
			// here rather than failing the whole distribution.
			r.log.Warn("referral cycle detected",
				zap.Uint64("user_id", current.ID),
				zap.Uint64("referrer_id", parent.ID))
			break
		}
		visited[parent.ID] = true
		chain = append(chain, ChainLink{Referrer: parent, Level: level})
		current = parent
	}
	return chain, nil
}

// lookupParent resolves a user's direct referrer: by referrer_id when
// set, otherwise by matching their applied code against another user's
// public code. The second return value is false when no parent exists.
func (r *Resolver) lookupParent(ctx context.Context, u model.User) (model.User, bool, error) {
	if u.ReferrerID != nil {
		parent, err := r.users.GetByID(ctx, *u.ReferrerID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, false, nil
		}
		if err != nil {
			return model.User{}, false, err
		}
		return parent, true, nil
	}
	if u.AppliedReferralCode != nil && *u.AppliedReferralCode != "" {
		parent, err := r.users.GetByReferralCode(ctx, *u.AppliedReferralCode)
		if errors.Is(err, repository.ErrCodeNotFound) {
			return model.User{}, false, nil
		}
		if err != nil {
			return model.User{}, false, err
		}
		if parent.ID == u.ID {
			return model.User{}, false, nil
		}
		return parent, true, nil
	}
	return model.User{}, false, nil
}

// ResolveForest builds the full referral forest from the complete user
// set in a single pass. It allocates one node per user into an
// id-indexed arena, links children to parents through the arena, then
// assigns levels 1..MaxDepth breadth-first from the roots. Users deeper
// than MaxDepth stay in the tree but produce no edges.
//
// The returned edges carry the root-to-user id path and are ready for
// a wholesale snapshot replace.
func (r *Resolver) ResolveForest(users []model.User, now time.Time) ([]*model.NetworkNode, []model.ReferralEdge) {
	arena := make(map[uint64]*model.NetworkNode, len(users))
	byCode := make(map[string]*model.NetworkNode, len(users))
	for i := range users {
		n := &model.NetworkNode{User: users[i]}
		arena[users[i].ID] = n
		if code := users[i].ReferralCode; code != "" {
			byCode[strings.ToUpper(code)] = n
		}
	}

	roots := make([]*model.NetworkNode, 0)
	for i := range users {
		n := arena[users[i].ID]
		parent := r.parentInArena(n.User, arena, byCode)
		if parent == nil || parent == n {
			roots = append(roots, n)
			continue
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	// Breadth-first leveling from the roots with a shared visited set.
	// The visited guard keeps cycles that never reach a root from
	// looping the walk.
	edges := make([]model.ReferralEdge, 0, len(users))
	visited := make(map[uint64]bool, len(users))
	frontier := roots
	for _, root := range roots {
		visited[root.User.ID] = true
	}
	for level := 1; level <= MaxDepth; level++ {
		next := make([]*model.NetworkNode, 0)
		for _, parent := range frontier {
			for _, child := range parent.Children {
				if visited[child.User.ID] {
					continue
				}
				visited[child.User.ID] = true
				child.Level = level
				edges = append(edges, model.ReferralEdge{
					UserID:     child.User.ID,
					ReferrerID: parent.User.ID,
					Level:      level,
					Path:       pathTo(child),
					IsActive:   true,
					VerifiedAt: now,
				})
				next = append(next, child)
			}
		}
		frontier = next
	}
	return roots, edges
}

// parentInArena mirrors lookupParent against the in-memory arena.
func (r *Resolver) parentInArena(u model.User, arena map[uint64]*model.NetworkNode, byCode map[string]*model.NetworkNode) *model.NetworkNode {
	if u.ReferrerID != nil {
		return arena[*u.ReferrerID]
	}
	if u.AppliedReferralCode != nil && *u.AppliedReferralCode != "" {
		return byCode[strings.ToUpper(*u.AppliedReferralCode)]
	}
	return nil
}

// pathTo renders the root-to-node id sequence, e.g. "1->5->9".
func pathTo(n *model.NetworkNode) string {
	ids := make([]string, 0, MaxDepth+1)
	for cur := n; cur != nil; cur = cur.Parent {
		ids = append(ids, strconv.FormatUint(cur.User.ID, 10))
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return strings.Join(ids, "->")
}
