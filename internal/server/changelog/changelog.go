// Package changelog renders the field-level difference between two versions
// of a record as a short audit note.
package changelog

import (
	"slices"
	"strings"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type field struct {
	label string
	// reportRemoval controls whether present-to-empty yields "<label> removed."
	// or nothing at all.
	reportRemoval bool
	present       func(r *models.Record) bool
	equal         func(a, b *models.Record) bool
}

var fields = []field{
	text("Software title", true, func(r *models.Record) string { return r.SoftwareTitle }),
	text("Acronym", true, func(r *models.Record) string { return r.Acronym }),
	text("Description", true, func(r *models.Record) string { return r.Description }),
	text("Version number", true, func(r *models.Record) string { return r.VersionNumber }),
	text("Accessibility", true, func(r *models.Record) string { return string(r.Accessibility) }),
	text("Repository link", true, func(r *models.Record) string { return r.RepositoryLink }),
	text("Landing page", true, func(r *models.Record) string { return r.LandingPage }),
	text("File name", false, func(r *models.Record) string { return r.FileName }),
	text("DOI", false, func(r *models.Record) string { return r.DOI }),
	{
		label:         "Release date",
		reportRemoval: true,
		present:       func(r *models.Record) bool { return r.ReleaseDate != nil && !r.ReleaseDate.IsZero() },
		equal: func(a, b *models.Record) bool {
			if a.ReleaseDate == nil || b.ReleaseDate == nil {
				return a.ReleaseDate == nil && b.ReleaseDate == nil
			}
			return a.ReleaseDate.Equal(*b.ReleaseDate)
		},
	},
	set("Licenses", func(r *models.Record) []string { return r.Licenses }),
	set("Keywords", func(r *models.Record) []string { return r.Keywords }),
	set("Programming languages", func(r *models.Record) []string { return r.ProgrammingLanguages }),
	set("Access limitations", func(r *models.Record) []string { return r.AccessLimitations }),
	parties("Developers", func(r *models.Record) []models.Party { return r.Developers }),
	parties("Contributors", func(r *models.Record) []models.Party { return r.Contributors }),
	parties("Sponsoring organizations", func(r *models.Record) []models.Party { return r.SponsoringOrganizations }),
	parties("Research organizations", func(r *models.Record) []models.Party { return r.ResearchOrganizations }),
	parties("Contributing organizations", func(r *models.Record) []models.Party { return r.ContributingOrganizations }),
	{
		label:         "Contact",
		reportRemoval: true,
		present:       func(r *models.Record) bool { return r.Contact != models.ContactInfo{} },
		equal:         func(a, b *models.Record) bool { return a.Contact == b.Contact },
	},
}

// Describe returns one clause per tracked field that differs between old and
// updated, joined by single spaces. Identical records yield "".
func Describe(old, updated models.Record) string {
	var clauses []string
	for _, f := range fields {
		if f.equal(&old, &updated) {
			continue
		}
		if f.present(&old) && !f.present(&updated) {
			if f.reportRemoval {
				clauses = append(clauses, f.label+" removed.")
			}
			continue
		}
		clauses = append(clauses, f.label+" updated.")
	}
	return strings.Join(clauses, " ")
}

func text(label string, reportRemoval bool, get func(r *models.Record) string) field {
	return field{
		label:         label,
		reportRemoval: reportRemoval,
		present:       func(r *models.Record) bool { return strings.TrimSpace(get(r)) != "" },
		equal:         func(a, b *models.Record) bool { return get(a) == get(b) },
	}
}

// set compares lists as sets: order and repetition do not matter.
func set(label string, get func(r *models.Record) []string) field {
	return field{
		label:         label,
		reportRemoval: true,
		present:       func(r *models.Record) bool { return len(get(r)) > 0 },
		equal: func(a, b *models.Record) bool {
			return slices.Equal(distinct(get(a)), distinct(get(b)))
		},
	}
}

func distinct(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// parties compares entity lists by length and by each entry's display name;
// edits to other attributes of an entry are not reported.
func parties(label string, get func(r *models.Record) []models.Party) field {
	return field{
		label:         label,
		reportRemoval: true,
		present:       func(r *models.Record) bool { return len(get(r)) > 0 },
		equal: func(a, b *models.Record) bool {
			return slices.EqualFunc(get(a), get(b), func(x, y models.Party) bool {
				return identity(x) == identity(y)
			})
		},
	}
}

func identity(p models.Party) string {
	if p.Kind.IsOrganization() || p.OrganizationName != "" {
		return p.OrganizationName
	}
	return p.FirstName + "\x00" + p.LastName
}
