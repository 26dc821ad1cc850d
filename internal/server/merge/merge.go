// Package merge applies an incoming RecordPatch onto a canonical Record
// without erasing fields the patch does not mention.
//
// Rules:
//   - scalar fields overwrite when present and not null;
//   - list fields overwrite when set; an empty list or null clears them;
//   - release_date overwrites when set, and an explicit null clears it;
//   - owner, site_ownership_code, code_id, workflow_status and the system
//     timestamps never come from the patch;
//   - doi is kept from the canonical record once it is non-empty and the
//     record has reached Submitted.
package merge

import (
	"github.com/dmitrijs2005/codereg/internal/server/models"
)

// Apply returns canonical with patch merged onto it. Neither argument is
// modified.
func Apply(canonical models.Record, patch models.RecordPatch) models.Record {
	out := canonical.Clone()

	if patch.DOI.Present() && !doiLocked(canonical) {
		out.DOI = patch.DOI.Value
	}

	if patch.ReleaseDate.Set {
		if patch.ReleaseDate.Null {
			out.ReleaseDate = nil
		} else {
			d := patch.ReleaseDate.Value
			out.ReleaseDate = &d
		}
	}

	scalar(&out.SoftwareTitle, patch.SoftwareTitle)
	scalar(&out.Acronym, patch.Acronym)
	scalar(&out.Description, patch.Description)
	scalar(&out.VersionNumber, patch.VersionNumber)
	scalar(&out.Accessibility, patch.Accessibility)
	scalar(&out.RepositoryLink, patch.RepositoryLink)
	scalar(&out.LandingPage, patch.LandingPage)
	scalar(&out.FileName, patch.FileName)
	scalar(&out.Contact, patch.Contact)

	stringList(&out.Licenses, patch.Licenses)
	stringList(&out.Keywords, patch.Keywords)
	stringList(&out.ProgrammingLanguages, patch.ProgrammingLanguages)
	stringList(&out.AccessLimitations, patch.AccessLimitations)

	partyList(&out.Developers, patch.Developers)
	partyList(&out.Contributors, patch.Contributors)
	partyList(&out.SponsoringOrganizations, patch.SponsoringOrganizations)
	partyList(&out.ResearchOrganizations, patch.ResearchOrganizations)
	partyList(&out.ContributingOrganizations, patch.ContributingOrganizations)

	out.Normalize()
	return out
}

// NewRecord builds the canonical record for a creation: the patch applied
// onto an empty record, stamped with the creating principal's identity.
func NewRecord(patch models.RecordPatch, owner, siteCode string) models.Record {
	out := Apply(models.Record{}, patch)
	out.Owner = owner
	out.SiteOwnershipCode = siteCode
	return out
}

func doiLocked(canonical models.Record) bool {
	return canonical.DOI != "" && canonical.WorkflowStatus.AtLeast(models.StatusSubmitted)
}

func scalar[T any](dst *T, v models.Optional[T]) {
	if v.Present() {
		*dst = v.Value
	}
}

func stringList(dst *[]string, v models.Optional[[]string]) {
	if !v.Set {
		return
	}
	if v.Null || len(v.Value) == 0 {
		*dst = nil
		return
	}
	*dst = append([]string{}, v.Value...)
}

func partyList(dst *[]models.Party, v models.Optional[[]models.Party]) {
	if !v.Set {
		return
	}
	if v.Null || len(v.Value) == 0 {
		*dst = nil
		return
	}
	out := make([]models.Party, len(v.Value))
	for i, p := range v.Value {
		p.Affiliations = append([]string(nil), p.Affiliations...)
		out[i] = p
	}
	*dst = out
}
