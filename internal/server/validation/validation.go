// Package validation holds the rule sets a record must pass before it may
// enter a workflow status. Rules are pure predicates over the record; every
// failing rule contributes its message and evaluation never stops early, so
// the caller gets the complete list in one pass.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/codereg/internal/server/models"
)

type rule func(r *models.Record) []string

var submitRules = []rule{
	requireText("Software title is required.", func(r *models.Record) string { return r.SoftwareTitle }),
	requireText("Description is required.", func(r *models.Record) string { return r.Description }),
	licenses,
	developers,
	contributors,
	accessibility,
	repositoryLink,
	landingPage,
}

var announceRules = []rule{
	releaseDate,
	sponsoringOrganizations,
	researchOrganizations,
	contact,
	archiveFile,
}

// ForSubmit returns every violation that blocks a move to Submitted.
func ForSubmit(r *models.Record) []string {
	return run(r, submitRules)
}

// ForAnnounce returns every Submit violation followed by the Announce-only
// ones.
func ForAnnounce(r *models.Record) []string {
	return append(ForSubmit(r), run(r, announceRules)...)
}

// For picks the rule set guarding entry into status. Saved has none.
func For(status models.Status, r *models.Record) []string {
	switch status {
	case models.StatusSubmitted:
		return ForSubmit(r)
	case models.StatusAnnounced, models.StatusApproved:
		return ForAnnounce(r)
	}
	return nil
}

func run(r *models.Record, rules []rule) []string {
	var out []string
	for _, check := range rules {
		out = append(out, check(r)...)
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func requireText(msg string, get func(r *models.Record) string) rule {
	return func(r *models.Record) []string {
		if blank(get(r)) {
			return []string{msg}
		}
		return nil
	}
}

func licenses(r *models.Record) []string {
	for _, l := range r.Licenses {
		if !blank(l) {
			return nil
		}
	}
	return []string{"A License is required."}
}

func developers(r *models.Record) []string {
	if len(r.Developers) == 0 {
		return []string{"At least one developer is required."}
	}
	var out []string
	for _, d := range r.Developers {
		out = append(out, personName("Developer", d)...)
	}
	return out
}

func contributors(r *models.Record) []string {
	var out []string
	for _, c := range r.Contributors {
		out = append(out, personName("Contributor", c)...)
		if blank(c.ContributorType) {
			out = append(out, "Contributor missing contributor type.")
		}
	}
	return out
}

func personName(label string, p models.Party) []string {
	var out []string
	if blank(p.FirstName) {
		out = append(out, label+" missing first name.")
	}
	if blank(p.LastName) {
		out = append(out, label+" missing last name.")
	}
	return out
}

func accessibility(r *models.Record) []string {
	switch {
	case r.Accessibility == "":
		return []string{"Accessibility is required."}
	case !r.Accessibility.Known():
		return []string{"Accessibility value is not recognized."}
	}
	return nil
}

func repositoryLink(r *models.Record) []string {
	if r.Accessibility == models.AccessOpenSource && blank(r.RepositoryLink) {
		return []string{"Repository URL is required for open source submissions."}
	}
	if !blank(r.RepositoryLink) && !ValidRepositoryLink(r.RepositoryLink) {
		return []string{"Repository URL is not a valid repository."}
	}
	return nil
}

func landingPage(r *models.Record) []string {
	needed := r.Accessibility != models.AccessOpenSource && r.Accessibility != models.AccessHostedLocally
	if needed && blank(r.LandingPage) {
		return []string{"Landing Page is required for non-open source submissions."}
	}
	if !blank(r.LandingPage) && !validWebURL(r.LandingPage) {
		return []string{"Landing Page URL is not valid."}
	}
	return nil
}

func releaseDate(r *models.Record) []string {
	if r.ReleaseDate == nil || r.ReleaseDate.IsZero() {
		return []string{"Release Date is required."}
	}
	return nil
}

func sponsoringOrganizations(r *models.Record) []string {
	if len(r.SponsoringOrganizations) == 0 {
		return []string{"At least one sponsoring organization is required."}
	}
	var out []string
	for _, o := range r.SponsoringOrganizations {
		if blank(o.OrganizationName) {
			out = append(out, "Sponsoring organization missing name.")
			continue
		}
		if o.DOE && !ValidAwardNumber(o.PrimaryAward) {
			out = append(out, fmt.Sprintf("Sponsoring organization %s requires a valid award number.", o.OrganizationName))
		}
	}
	return out
}

func researchOrganizations(r *models.Record) []string {
	if len(r.ResearchOrganizations) == 0 {
		return []string{"At least one research organization is required."}
	}
	var out []string
	for _, o := range r.ResearchOrganizations {
		if blank(o.OrganizationName) {
			out = append(out, "Research organization missing name.")
		}
	}
	return out
}

func contact(r *models.Record) []string {
	var out []string
	c := r.Contact
	if blank(c.Name) {
		out = append(out, "Contact name is required.")
	}
	switch {
	case blank(c.Email):
		out = append(out, "Contact email is required.")
	case !ValidEmail(c.Email):
		out = append(out, "Contact email is not valid.")
	}
	switch {
	case blank(c.Phone):
		out = append(out, "Contact phone is required.")
	case !ValidPhone(c.Phone):
		out = append(out, "Contact phone number is not valid.")
	}
	if blank(c.Organization) {
		out = append(out, "Contact organization is required.")
	}
	return out
}

func archiveFile(r *models.Record) []string {
	nonOpen := r.Accessibility == models.AccessOpenSourceNotPublic || r.Accessibility == models.AccessClosedSource
	if nonOpen && blank(r.FileName) {
		return []string{"A file archive must be included for non-open source submissions."}
	}
	return nil
}

var (
	scpLikeRepo = regexp.MustCompile(`^[\w.-]+@[\w.-]+:[\w./~-]+$`)
	phoneChars  = regexp.MustCompile(`^\+?[0-9 ().-]+$`)
	awardNumber = regexp.MustCompile(`^[A-Za-z0-9]+([-./][A-Za-z0-9]+)*$`)
)

// ValidRepositoryLink reports whether s names a source-control location:
// an http(s), git or ssh URL with a host and a repository path, or the
// scp-like "user@host:path" form.
func ValidRepositoryLink(s string) bool {
	s = strings.TrimSpace(s)
	if scpLikeRepo.MatchString(s) {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh":
	default:
		return false
	}
	return u.Host != "" && strings.Trim(u.Path, "/") != ""
}

func validWebURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidEmail accepts a bare address, without a display name.
func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == strings.TrimSpace(s)
}

// ValidPhone accepts digits with common separators and 7 to 15 digits.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneChars.MatchString(s) {
		return false
	}
	digits := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// ValidAwardNumber accepts contract/award identifiers such as DE-AC05-00OR22725.
func ValidAwardNumber(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 4 && awardNumber.MatchString(s)
}
