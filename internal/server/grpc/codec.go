package grpc

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/dmitrijs2005/codereg/internal/server/services"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// recordRef addresses an existing record. Reason is read by the tombstone
// methods only.
type recordRef struct {
	CodeID int64  `json:"code_id"`
	Reason string `json:"reason,omitempty"`
}

type transitionView struct {
	Record       *models.Record `json:"record"`
	ChangeNote   string         `json:"change_note,omitempty"`
	SyncWarnings []string       `json:"sync_warnings,omitempty"`
}

type recordView struct {
	Record *models.Record `json:"record"`
}

type tombstoneView struct {
	ID                 int64           `json:"id"`
	CodeID             int64           `json:"code_id"`
	Status             string          `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	RestrictedMetadata bool            `json:"restricted_metadata"`
	State              json.RawMessage `json:"state,omitempty"`
	ApprovedState      json.RawMessage `json:"approved_state,omitempty"`
}

type historyView struct {
	Events []tombstoneView `json:"events"`
}

// decode reads a Struct payload into v through its JSON form, so the
// presence tracking of models.Optional sees explicit nulls.
func decode(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func newTransitionView(res *services.TransitionResult) transitionView {
	v := transitionView{Record: res.Record, ChangeNote: res.ChangeNote}
	for _, err := range res.SyncErrors {
		v.SyncWarnings = append(v.SyncWarnings, err.Error())
	}
	return v
}

func newTombstoneView(t *models.Tombstone) tombstoneView {
	return tombstoneView{
		ID:                 t.ID,
		CodeID:             t.CodeID,
		Status:             string(t.Status),
		Reason:             t.Reason,
		CreatedBy:          t.CreatedBy,
		CreatedAt:          t.CreatedAt,
		RestrictedMetadata: t.RestrictedMetadata,
		State:              t.JSON,
		ApprovedState:      t.ApprovedJSON,
	}
}
