package models

// PartyKind discriminates the roles a Party can play on a Record.
type PartyKind string

const (
	KindDeveloper       PartyKind = "Developer"
	KindContributor     PartyKind = "Contributor"
	KindSponsoringOrg   PartyKind = "SponsoringOrg"
	KindResearchOrg     PartyKind = "ResearchOrg"
	KindContributingOrg PartyKind = "ContributingOrg"
)

// Party is a person or an organization attached to a Record. Person kinds use
// the name fields, organization kinds use OrganizationName; every kind may
// carry affiliations.
type Party struct {
	Kind             PartyKind `json:"kind,omitempty"`
	FirstName        string    `json:"first_name,omitempty"`
	MiddleName       string    `json:"middle_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	Email            string    `json:"email,omitempty"`
	ORCID            string    `json:"orcid,omitempty"`
	ContributorType  string    `json:"contributor_type,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	DOE              bool      `json:"doe,omitempty"`
	PrimaryAward     string    `json:"primary_award,omitempty"`
	Affiliations     []string  `json:"affiliations,omitempty"`
}

// IsOrganization reports whether the kind describes an organization.
func (k PartyKind) IsOrganization() bool {
	switch k {
	case KindSponsoringOrg, KindResearchOrg, KindContributingOrg:
		return true
	}
	return false
}

// withKind stamps kind on every party of the list.
func withKind(parties []Party, kind PartyKind) []Party {
	if parties == nil {
		return nil
	}
	out := make([]Party, len(parties))
	for i, p := range parties {
		p.Kind = kind
		p.Affiliations = append([]string(nil), p.Affiliations...)
		out[i] = p
	}
	return out
}
