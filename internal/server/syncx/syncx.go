// Package syncx holds the collaborators the workflow calls outside its own
// transaction: authorization, DOI registration, archiving, search indexing,
// hosted-repository mirroring and notifications.
package syncx

import (
	"context"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type Authorizer interface {
	IsOwner(p models.Principal, r *models.Record) bool
	HasRole(p models.Principal, role string) bool
}

// Registrar publishes a record's DOI metadata.
type Registrar interface {
	Register(ctx context.Context, r *models.Record) error
}

// Archiver preserves the code behind a record. source is the repository link
// or the uploaded file name.
type Archiver interface {
	Archive(ctx context.Context, codeID int64, source string) error
}

type Indexer interface {
	Index(ctx context.Context, r *models.Record) error
}

// Mirror copies a locally hosted (CO) project into the hosted repository
// service.
type Mirror interface {
	Mirror(ctx context.Context, r *models.Record) error
}

// Notifier sends out workflow mail. Failures are logged by the caller and
// never affect the transition.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, r *models.Record) error
	NotifyApproval(ctx context.Context, r *models.Record) error
	NotifyPointOfContact(ctx context.Context, r *models.Record) error
}

// Collaborators bundles every outbound dependency of the workflow.
type Collaborators struct {
	Authorizer Authorizer
	Registrar  Registrar
	Archiver   Archiver
	Indexer    Indexer
	Mirror     Mirror
	Notifier   Notifier
}
