// Package reconcile guards the single-active-stack invariant: among all
// non-deleted, non-draft stacks at most one may carry the active flag.
// Concurrent local edits and remote event replay can both violate it, so the
// reconciler self-heals after activations and once at process start.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/stacks"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/dmitrijs2005/stackpad/internal/logging"
)

// RepairResult reports what ValidateAndRepair did.
type RepairResult int

const (
	// RepairNotNeeded means zero or one eligible stack was active.
	RepairNotNeeded RepairResult = iota
	// RepairApplied means extra active flags were cleared.
	RepairApplied
	// RepairAmbiguous means several candidates tied and no preference was
	// given; nothing was mutated.
	RepairAmbiguous
)

// Reconciler enforces the single-active invariant over the local store.
type Reconciler struct {
	db     *sql.DB
	log    *eventlog.Log
	logger logging.Logger
	now    func() time.Time
}

func New(db *sql.DB, log *eventlog.Log, logger logging.Logger) *Reconciler {
	return &Reconciler{
		db:     db,
		log:    log,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Activate makes the target stack the single active one.
//
// Preconditions: the target must exist, must not be soft-deleted and must not
// be a draft. Every current holder of the active flag is deactivated
// (one deactivation event each) regardless of what its status field says,
// the target is activated, and same-status siblings are renumbered so the
// target sorts first. Events are built before any field is mutated and
// everything commits in one transaction.
func (r *Reconciler) Activate(ctx context.Context, stackID string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := stacks.NewSQLiteRepository(tx)

		target, err := repo.GetByID(ctx, stackID)
		if err != nil {
			return err
		}
		if target.Deleted {
			return common.ErrStackDeleted
		}
		if target.Status == models.StackStatusDraft {
			return common.ErrStackDraft
		}

		// Status is no filter here: after remote replay a stack whose status
		// says "open" can still hold the flag.
		actives, err := repo.GetActive(ctx)
		if err != nil {
			return err
		}

		now := r.now()

		// Compute the post-mutation states first so their snapshots can be
		// appended before any row changes.
		var losers []*models.Stack
		for _, a := range actives {
			if a.ID == target.ID {
				continue
			}
			a.IsActive = false
			if a.Status == models.StackStatusActive {
				a.Status = models.StackStatusOpen
			}
			a.UpdatedAt = now
			losers = append(losers, a)
		}

		target.IsActive = true
		target.Status = models.StackStatusActive
		target.UpdatedAt = now

		order, err := r.renumberAfter(ctx, repo, target)
		if err != nil {
			return err
		}

		// Fold the new positions into the in-memory states so the event
		// snapshots already carry the final sort orders.
		for _, oe := range order {
			if oe.ID == target.ID {
				target.SortOrder = oe.SortOrder
				continue
			}
			for _, a := range losers {
				if a.ID == oe.ID {
					a.SortOrder = oe.SortOrder
				}
			}
		}

		for _, a := range losers {
			p := models.Payload{
				Kind:    models.SnapshotStack,
				Stack:   models.StackSnapshot(a),
				Changes: map[string]any{"isActive": false},
			}
			if _, err := r.log.Append(ctx, tx, models.EventStackDeactivated, a.ID, p); err != nil {
				return err
			}
		}

		p := models.Payload{
			Kind:    models.SnapshotStack,
			Stack:   models.StackSnapshot(target),
			Changes: map[string]any{"isActive": true},
		}
		if _, err := r.log.Append(ctx, tx, models.EventStackActivated, target.ID, p); err != nil {
			return err
		}

		if len(order) > 0 {
			po := models.Payload{Kind: models.SnapshotOrder, Order: order}
			if _, err := r.log.Append(ctx, tx, models.EventStackReordered, "", po); err != nil {
				return err
			}
		}

		// Events are in; now mutate the rows.
		for _, a := range losers {
			if err := repo.CreateOrUpdate(ctx, a); err != nil {
				return err
			}
		}
		if err := repo.CreateOrUpdate(ctx, target); err != nil {
			return err
		}
		for _, oe := range order {
			if err := repo.SetSortOrder(ctx, oe.ID, oe.SortOrder); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Post-condition self-check; concurrent writers may have raced us.
	if _, err := r.ValidateAndRepair(ctx, stackID); err != nil && !errors.Is(err, common.ErrAmbiguousActive) {
		return err
	}
	return nil
}

// renumberAfter computes new sort orders for the target's same-status
// siblings, target first, preserving the relative order of the rest.
func (r *Reconciler) renumberAfter(ctx context.Context, repo stacks.Repository, target *models.Stack) ([]models.OrderEntry, error) {
	siblings, err := repo.GetSiblings(ctx, target.Status)
	if err != nil {
		return nil, err
	}

	order := []models.OrderEntry{{ID: target.ID, SortOrder: 0}}
	next := 1
	for _, s := range siblings {
		if s.ID == target.ID {
			continue
		}
		order = append(order, models.OrderEntry{ID: s.ID, SortOrder: next})
		next++
	}
	if len(order) == 1 && target.SortOrder == 0 {
		// Nothing moved.
		return nil, nil
	}
	return order, nil
}

// ValidateAndRepair scans for multiple active stacks and deactivates the
// extras, keeping preferredID when given. Without a preference the lowest
// sort order wins; ties prefer a stack whose status field already says
// "active". If the tie still cannot be broken the violation is reported via
// RepairAmbiguous and common.ErrAmbiguousActive, and nothing is mutated.
func (r *Reconciler) ValidateAndRepair(ctx context.Context, preferredID string) (RepairResult, error) {
	result := RepairNotNeeded
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := stacks.NewSQLiteRepository(tx)

		actives, err := repo.GetActive(ctx)
		if err != nil {
			return err
		}

		// Drafts holding the flag are themselves violations and never win.
		var candidates, ineligible []*models.Stack
		for _, s := range actives {
			if s.Eligible() {
				candidates = append(candidates, s)
			} else {
				ineligible = append(ineligible, s)
			}
		}

		if len(candidates) <= 1 && len(ineligible) == 0 {
			return nil
		}

		var winner *models.Stack
		switch {
		case len(candidates) == 0:
			winner = nil
		case len(candidates) == 1:
			winner = candidates[0]
		default:
			winner = pickWinner(candidates, preferredID)
			if winner == nil {
				result = RepairAmbiguous
				return common.ErrAmbiguousActive
			}
		}

		now := r.now()
		for _, s := range actives {
			if winner != nil && s.ID == winner.ID {
				continue
			}
			s.IsActive = false
			if s.Status == models.StackStatusActive {
				s.Status = models.StackStatusOpen
			}
			s.UpdatedAt = now

			p := models.Payload{
				Kind:    models.SnapshotStack,
				Stack:   models.StackSnapshot(s),
				Changes: map[string]any{"isActive": false},
			}
			if _, err := r.log.Append(ctx, tx, models.EventStackDeactivated, s.ID, p); err != nil {
				return err
			}
			if err := repo.CreateOrUpdate(ctx, s); err != nil {
				return err
			}
			result = RepairApplied
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if result == RepairApplied {
		r.logger.Warn(ctx, "repaired multi-active violation", "preferred", preferredID)
	}
	return result, nil
}

// StartupRepair runs the invariant check against the full data set once at
// process start. Ambiguity is logged, not fatal: the user resolves it by
// activating a stack explicitly.
func (r *Reconciler) StartupRepair(ctx context.Context) error {
	_, err := r.ValidateAndRepair(ctx, "")
	if errors.Is(err, common.ErrAmbiguousActive) {
		r.logger.Warn(ctx, "multiple active stacks, cannot pick a winner automatically")
		return nil
	}
	if err != nil {
		return fmt.Errorf("startup repair: %w", err)
	}
	return nil
}

// pickWinner applies the repair policy: preferred id first, then lowest sort
// order, ties broken by a status field that already says "active". Returns
// nil when the tie cannot be broken.
func pickWinner(candidates []*models.Stack, preferredID string) *models.Stack {
	if preferredID != "" {
		for _, s := range candidates {
			if s.ID == preferredID {
				return s
			}
		}
	}

	sorted := make([]*models.Stack, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	lowest := sorted[0].SortOrder
	var tied []*models.Stack
	for _, s := range sorted {
		if s.SortOrder == lowest {
			tied = append(tied, s)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	var statusActive []*models.Stack
	for _, s := range tied {
		if s.Status == models.StackStatusActive {
			statusActive = append(statusActive, s)
		}
	}
	if len(statusActive) == 1 {
		return statusActive[0]
	}
	return nil
}
