// Package models defines the registry's data model: the canonical Record, the
// incoming RecordPatch, and the rows kept by the snapshot, tombstone and
// reservation ticket stores.
package models

import (
	"encoding/json"
	"time"
)

// ContactInfo is the record's point of contact.
type ContactInfo struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Record is the canonical software submission under workflow control.
type Record struct {
	CodeID            int64  `json:"code_id,omitempty"`
	WorkflowStatus    Status `json:"workflow_status,omitempty"`
	Owner             string `json:"owner,omitempty"`
	SiteOwnershipCode string `json:"site_ownership_code,omitempty"`
	DOI               string `json:"doi,omitempty"`
	ReleaseDate       *Date  `json:"release_date,omitempty"`

	SoftwareTitle  string        `json:"software_title,omitempty"`
	Acronym        string        `json:"acronym,omitempty"`
	Description    string        `json:"description,omitempty"`
	VersionNumber  string        `json:"version_number,omitempty"`
	Accessibility  Accessibility `json:"accessibility,omitempty"`
	RepositoryLink string        `json:"repository_link,omitempty"`
	LandingPage    string        `json:"landing_page,omitempty"`
	FileName       string        `json:"file_name,omitempty"`

	Licenses             []string `json:"licenses,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	ProgrammingLanguages []string `json:"programming_languages,omitempty"`
	AccessLimitations    []string `json:"access_limitations,omitempty"`

	Developers                []Party `json:"developers,omitempty"`
	Contributors              []Party `json:"contributors,omitempty"`
	SponsoringOrganizations   []Party `json:"sponsoring_organizations,omitempty"`
	ResearchOrganizations     []Party `json:"research_organizations,omitempty"`
	ContributingOrganizations []Party `json:"contributing_organizations,omitempty"`

	Contact ContactInfo `json:"contact,omitzero"`

	DateRecordAdded   time.Time `json:"date_record_added,omitzero"`
	DateRecordUpdated time.Time `json:"date_record_updated,omitzero"`

	// Version guards concurrent edits of the same row; it is not part of
	// the wire shape.
	Version int64 `json:"-"`
}

// unlimitedAccess is the only access limitation that keeps metadata public.
const unlimitedAccess = "UNL"

// RestrictedMetadata reports whether any access limitation other than
// unlimited applies.
func (r *Record) RestrictedMetadata() bool {
	for _, l := range r.AccessLimitations {
		if l != unlimitedAccess {
			return true
		}
	}
	return false
}

// Normalize stamps the party kind implied by each list.
func (r *Record) Normalize() {
	r.Developers = withKind(r.Developers, KindDeveloper)
	r.Contributors = withKind(r.Contributors, KindContributor)
	r.SponsoringOrganizations = withKind(r.SponsoringOrganizations, KindSponsoringOrg)
	r.ResearchOrganizations = withKind(r.ResearchOrganizations, KindResearchOrg)
	r.ContributingOrganizations = withKind(r.ContributingOrganizations, KindContributingOrg)
}

// Clone returns a deep copy so a merge never aliases the canonical record.
func (r Record) Clone() Record {
	out := r
	if r.ReleaseDate != nil {
		d := *r.ReleaseDate
		out.ReleaseDate = &d
	}
	out.Licenses = cloneStrings(r.Licenses)
	out.Keywords = cloneStrings(r.Keywords)
	out.ProgrammingLanguages = cloneStrings(r.ProgrammingLanguages)
	out.AccessLimitations = cloneStrings(r.AccessLimitations)
	out.Developers = cloneParties(r.Developers)
	out.Contributors = cloneParties(r.Contributors)
	out.SponsoringOrganizations = cloneParties(r.SponsoringOrganizations)
	out.ResearchOrganizations = cloneParties(r.ResearchOrganizations)
	out.ContributingOrganizations = cloneParties(r.ContributingOrganizations)
	return out
}

// MarshalState serializes the record for snapshots, tombstones and the
// records table.
func (r *Record) MarshalState() ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalRecord(data []byte) (*Record, error) {
	r := &Record{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneParties(in []Party) []Party {
	if in == nil {
		return nil
	}
	out := make([]Party, len(in))
	for i, p := range in {
		p.Affiliations = cloneStrings(p.Affiliations)
		out[i] = p
	}
	return out
}
