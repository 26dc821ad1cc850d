package models

// RecordPatch is an incoming edit. It shares the Record wire shape, but every
// field tracks its own presence so that absent fields are left alone by the
// merge. CodeID selects the target record; zero means "create".
type RecordPatch struct {
	CodeID int64 `json:"code_id,omitempty"`

	// Accepted on the wire, never merged.
	Owner             Optional[string] `json:"owner,omitzero"`
	SiteOwnershipCode Optional[string] `json:"site_ownership_code,omitzero"`

	DOI         Optional[string] `json:"doi,omitzero"`
	ReleaseDate Optional[Date]   `json:"release_date,omitzero"`

	SoftwareTitle  Optional[string]        `json:"software_title,omitzero"`
	Acronym        Optional[string]        `json:"acronym,omitzero"`
	Description    Optional[string]        `json:"description,omitzero"`
	VersionNumber  Optional[string]        `json:"version_number,omitzero"`
	Accessibility  Optional[Accessibility] `json:"accessibility,omitzero"`
	RepositoryLink Optional[string]        `json:"repository_link,omitzero"`
	LandingPage    Optional[string]        `json:"landing_page,omitzero"`
	FileName       Optional[string]        `json:"file_name,omitzero"`

	Licenses             Optional[[]string] `json:"licenses,omitzero"`
	Keywords             Optional[[]string] `json:"keywords,omitzero"`
	ProgrammingLanguages Optional[[]string] `json:"programming_languages,omitzero"`
	AccessLimitations    Optional[[]string] `json:"access_limitations,omitzero"`

	Developers                Optional[[]Party] `json:"developers,omitzero"`
	Contributors              Optional[[]Party] `json:"contributors,omitzero"`
	SponsoringOrganizations   Optional[[]Party] `json:"sponsoring_organizations,omitzero"`
	ResearchOrganizations     Optional[[]Party] `json:"research_organizations,omitzero"`
	ContributingOrganizations Optional[[]Party] `json:"contributing_organizations,omitzero"`

	Contact Optional[ContactInfo] `json:"contact,omitzero"`
}
