package models

import "fmt"

// Status is the lifecycle status of a Record.
type Status string

const (
	StatusNone      Status = ""
	StatusSaved     Status = "Saved"
	StatusSubmitted Status = "Submitted"
	StatusAnnounced Status = "Announced"
	StatusApproved  Status = "Approved"
)

var statusRank = map[Status]int{
	StatusNone:      0,
	StatusSaved:     1,
	StatusSubmitted: 2,
	StatusAnnounced: 3,
	StatusApproved:  4,
}

// Rank orders statuses along the pipeline; an unknown status ranks -1.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether s has reached other in the pipeline.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if s == StatusNone || s.Rank() < 0 {
		return StatusNone, fmt.Errorf("unknown workflow status %q", v)
	}
	return s, nil
}

// TombstoneStatus marks a record's removal from, or return to, circulation.
type TombstoneStatus string

const (
	TombstoneHidden   TombstoneStatus = "Hidden"
	TombstoneUnhidden TombstoneStatus = "Unhidden"
	TombstoneDeleted  TombstoneStatus = "Deleted"
)

// Accessibility is the declared availability tier of the software.
type Accessibility string

const (
	// AccessOpenSource: open source with a publicly reachable repository.
	AccessOpenSource Accessibility = "OS"
	// AccessOpenSourceNotPublic: open source, repository not public.
	AccessOpenSourceNotPublic Accessibility = "ON"
	// AccessHostedLocally: open source hosted by the registry's own repository service.
	AccessHostedLocally Accessibility = "CO"
	// AccessClosedSource: closed source.
	AccessClosedSource Accessibility = "CS"
)

func (a Accessibility) Known() bool {
	switch a {
	case AccessOpenSource, AccessOpenSourceNotPublic, AccessHostedLocally, AccessClosedSource:
		return true
	}
	return false
}
