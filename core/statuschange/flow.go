// Package statuschange implements the confirm-before-commit flow of entity status changes.
//
// An administrator requests a change, which is parked under their ID until they confirm or cancel it.
// Nothing is written before confirmation, and a confirmation commits at most once.
package statuschange

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
)

//go:generate mockgen -source=flow.go -destination=../../mocks/statuschange.go -package=mocks

const keyPrefix = "statuschange:"

type (
	Kind  string
	State string
)

const (
	KindDiscipline Kind = "discipline"
	KindUser       Kind = "user"

	StateIdle    State = "idle"
	StatePending State = "pending_confirmation"
)

var (
	ErrPermissionDenied = errors.New("only administrators can change statuses")
	ErrNothingPending   = core.NewNotFoundError("no pending status change")
)

type (
	// Committer reads and writes the status of one kind of entity.
	Committer interface {
		CurrentStatus(ctx context.Context, id string) (string, error)
		// CommitStatus persists the status and returns the updated entity.
		CommitStatus(ctx context.Context, id, status string) (interface{}, error)
	}

	// Classifier tells whether the actor is an administrator.
	Classifier interface {
		Classify(ctx context.Context, userID string) (access.Class, []access.Privilege, error)
	}

	Request struct {
		Kind     Kind   `json:"kind" validate:"required"`
		EntityID string `json:"entity_id" validate:"required"`
		Status   string `json:"status" validate:"required"`
	}

	Pending struct {
		Kind        Kind      `json:"kind"`
		EntityID    string    `json:"entity_id"`
		From        string    `json:"from"`
		To          string    `json:"to"`
		RequestedAt time.Time `json:"requested_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}

	Current struct {
		State   State    `json:"state"`
		Pending *Pending `json:"pending,omitempty"`
	}

	Confirmed struct {
		Change Pending     `json:"change"`
		Object interface{} `json:"object"`
	}

	target struct {
		committer Committer
		statuses  []string
	}
)

type Flow struct {
	cache      core.Cache
	classifier Classifier
	targets    map[Kind]target
	ttl        time.Duration
	now        func() time.Time
}

func NewFlow(cache core.Cache, classifier Classifier, ttl time.Duration) *Flow {
	return &Flow{
		cache:      cache,
		classifier: classifier,
		targets:    make(map[Kind]target),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Register makes kind changeable to one of statuses through committer.
func (f *Flow) Register(kind Kind, committer Committer, statuses ...string) {
	f.targets[kind] = target{committer: committer, statuses: statuses}
}

func key(actorID string) string { return keyPrefix + actorID }

// Request parks a status change for the actor to confirm. A later request replaces an earlier one.
func (f *Flow) Request(ctx context.Context, actorID string, req Request) (Pending, error) {
	class, _, err := f.classifier.Classify(ctx, actorID)
	if err != nil {
		return Pending{}, errors.Wrap(err, "classifying actor")
	}
	if class != access.ClassAdmin {
		return Pending{}, ErrPermissionDenied
	}

	tgt, ok := f.targets[req.Kind]
	if !ok {
		return Pending{}, fieldError("kind", fmt.Sprintf("unknown kind %q", req.Kind))
	}
	if !contains(tgt.statuses, req.Status) {
		return Pending{}, fieldError("status", fmt.Sprintf("invalid %s status %q", req.Kind, req.Status))
	}

	from, err := tgt.committer.CurrentStatus(ctx, req.EntityID)
	if err != nil {
		return Pending{}, errors.Wrapf(err, "reading %s status", req.Kind)
	}
	if from == req.Status {
		return Pending{}, fieldError("status", fmt.Sprintf("%s is already %s", req.Kind, from))
	}

	now := f.now().UTC()
	p := Pending{
		Kind:        req.Kind,
		EntityID:    req.EntityID,
		From:        from,
		To:          req.Status,
		RequestedAt: now,
		ExpiresAt:   now.Add(f.ttl),
	}
	if err = f.cache.Set(ctx, key(actorID), p, f.ttl); err != nil {
		return Pending{}, errors.Wrap(err, "storing pending change")
	}
	return p, nil
}

// Confirm commits the actor's pending change exactly once. The actor is idle afterwards, whatever the outcome.
func (f *Flow) Confirm(ctx context.Context, actorID string) (Confirmed, error) {
	var p Pending
	found, err := f.cache.Take(ctx, key(actorID), &p)
	if err != nil {
		return Confirmed{}, errors.Wrap(err, "taking pending change")
	}
	if !found {
		return Confirmed{}, ErrNothingPending
	}

	tgt, ok := f.targets[p.Kind]
	if !ok {
		return Confirmed{}, errors.Errorf("no committer for kind %q", p.Kind)
	}
	obj, err := tgt.committer.CommitStatus(ctx, p.EntityID, p.To)
	if err != nil {
		return Confirmed{}, errors.Wrapf(err, "committing %s status", p.Kind)
	}
	return Confirmed{Change: p, Object: obj}, nil
}

// Cancel drops the actor's pending change, if any.
func (f *Flow) Cancel(ctx context.Context, actorID string) error {
	return errors.Wrap(f.cache.Delete(ctx, key(actorID)), "dropping pending change")
}

func (f *Flow) Current(ctx context.Context, actorID string) (Current, error) {
	var p Pending
	found, err := f.cache.Get(ctx, key(actorID), &p)
	if err != nil {
		return Current{}, errors.Wrap(err, "reading pending change")
	}
	if !found {
		return Current{State: StateIdle}, nil
	}
	return Current{State: StatePending, Pending: &p}, nil
}

func fieldError(field, msg string) error {
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: field, Error: msg})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
