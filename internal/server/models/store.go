package models

import "time"

// DOITicketType keys the reservation ticket used for DOI allocation.
const DOITicketType = "DOI"

// ReservationTicket is the singleton counter behind identifier allocation.
type ReservationTicket struct {
	Type          string
	DateBucket    string
	SequenceIndex int64
}

// Snapshot is the serialized state of a record as of reaching Status.
type Snapshot struct {
	CodeID    int64
	Status    Status
	JSON      []byte
	UpdatedAt time.Time
}

// Tombstone is one hide/unhide/delete event. Rows are only ever inserted.
type Tombstone struct {
	ID                 int64
	CodeID             int64
	Status             TombstoneStatus
	JSON               []byte
	ApprovedJSON       []byte
	RestrictedMetadata bool
	Reason             string
	CreatedBy          string
	CreatedAt          time.Time
}
