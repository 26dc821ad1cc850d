package syncx

import (
	"context"

	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/models"
)

// LogNotifier records the mail that would be sent. Used when no mail relay
// is configured.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notifier")}
}

func (n *LogNotifier) NotifyStatusChange(ctx context.Context, r *models.Record) error {
	n.log.Info(ctx, "status change notice", "code_id", r.CodeID, "status", r.WorkflowStatus, "owner", r.Owner)
	return nil
}

func (n *LogNotifier) NotifyApproval(ctx context.Context, r *models.Record) error {
	n.log.Info(ctx, "approval notice", "code_id", r.CodeID, "doi", r.DOI, "owner", r.Owner)
	return nil
}

func (n *LogNotifier) NotifyPointOfContact(ctx context.Context, r *models.Record) error {
	if r.Contact.Email == "" {
		return nil
	}
	n.log.Info(ctx, "point of contact notice", "code_id", r.CodeID, "contact", r.Contact.Email)
	return nil
}

// LogRegistrar stands in for the DOI registration agency.
type LogRegistrar struct {
	log     logging.Logger
	siteURL string
}

func NewLogRegistrar(log logging.Logger, siteURL string) *LogRegistrar {
	return &LogRegistrar{log: log.With("module", "registrar"), siteURL: siteURL}
}

func (g *LogRegistrar) Register(ctx context.Context, r *models.Record) error {
	g.log.Info(ctx, "doi registered",
		"code_id", r.CodeID,
		"doi", r.DOI,
		"release_date", r.ReleaseDate,
		"landing_page", LandingURL(g.siteURL, r.CodeID),
	)
	return nil
}

// LogMirror stands in for the hosted repository service.
type LogMirror struct {
	log logging.Logger
}

func NewLogMirror(log logging.Logger) *LogMirror {
	return &LogMirror{log: log.With("module", "mirror")}
}

func (m *LogMirror) Mirror(ctx context.Context, r *models.Record) error {
	m.log.Info(ctx, "hosted repository mirror requested", "code_id", r.CodeID, "repository_link", r.RepositoryLink)
	return nil
}

// NopIndexer accepts every record. Used when no index URL is configured.
type NopIndexer struct{}

func (NopIndexer) Index(context.Context, *models.Record) error { return nil }
