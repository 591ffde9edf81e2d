// Package store provides the read and subscription persistence layer over
// the nomenclature tables.
package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a lookup by token or id matches nothing.
var ErrNotFound = eris.New("store: not found")

// SearchScope restricts a search to one record table.
type SearchScope string

const (
	ScopeAll        SearchScope = "all"
	ScopeActive     SearchScope = "active"
	ScopeWithdrawn  SearchScope = "withdrawn"
	ScopeNonRenewed SearchScope = "nonrenewed"
)

// Valid reports whether s is a recognized scope.
func (s SearchScope) Valid() bool {
	switch s {
	case ScopeAll, ScopeActive, ScopeWithdrawn, ScopeNonRenewed:
		return true
	}
	return false
}

// RegistrationFilter narrows a registrations listing.
type RegistrationFilter struct {
	Year   *int
	Limit  int
	Offset int
}

// Store is the persistence interface the HTTP layer and the publisher
// depend on.
type Store interface {
	// Read paths
	Stats(ctx context.Context) (*Stats, error)
	Search(ctx context.Context, query string, scope SearchScope, limit int) ([]SearchHit, error)
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]Drug, error)
	LatestAdditions(ctx context.Context, limit int) ([]Drug, error)
	ListWithdrawals(ctx context.Context, limit, offset int) ([]WithdrawnDrug, error)
	ListNonRenewals(ctx context.Context, limit, offset int) ([]NonRenewedDrug, error)
	RegistrationsByYear(ctx context.Context) ([]YearCount, error)
	GenericGroups(ctx context.Context, limit int) ([]GenericGroup, error)

	// Newsletter
	Subscribe(ctx context.Context, email, name string) (*Subscriber, error)
	ConfirmSubscriber(ctx context.Context, token string) (*Subscriber, error)
	Unsubscribe(ctx context.Context, token string) error
	ConfirmedSubscribers(ctx context.Context) ([]Subscriber, error)

	// Publication audit trail
	RecordPublication(ctx context.Context, p Publication) error
	RecentPublications(ctx context.Context, limit int) ([]Publication, error)

	// Lifecycle
	Capabilities() Capabilities
	Reprobe(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
