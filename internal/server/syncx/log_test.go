package syncx

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestLogCollaborators(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New("json", &buf)
	ctx := context.Background()
	r := &models.Record{CodeID: 5, DOI: "10.11578/dc.20240101.1", Contact: models.ContactInfo{Email: "poc@example.org"}}

	assert.NoError(t, NewLogNotifier(log).NotifyStatusChange(ctx, r))
	assert.NoError(t, NewLogNotifier(log).NotifyApproval(ctx, r))
	assert.NoError(t, NewLogNotifier(log).NotifyPointOfContact(ctx, r))
	assert.NoError(t, NewLogRegistrar(log, "https://example.org/codereg").Register(ctx, r))
	assert.NoError(t, NewLogMirror(log).Mirror(ctx, r))
	assert.NoError(t, NopIndexer{}.Index(ctx, r))

	out := buf.String()
	assert.Contains(t, out, "poc@example.org")
	assert.Contains(t, out, "https://example.org/codereg/biblio/5")
	assert.Contains(t, out, `"module":"registrar"`)
}

func TestLandingURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/codereg/biblio/12", LandingURL("http://localhost:8080/codereg/", 12))
	assert.Equal(t, "", LandingURL("://bad", 12))
}
