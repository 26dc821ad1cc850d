package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPatch_TracksPresence(t *testing.T) {
	var p RecordPatch
	require.NoError(t, json.Unmarshal([]byte(`{
		"code_id": 12,
		"software_title": "Solver",
		"release_date": null,
		"licenses": [],
		"keywords": null
	}`), &p))

	assert.Equal(t, int64(12), p.CodeID)
	assert.True(t, p.SoftwareTitle.Present())
	assert.Equal(t, "Solver", p.SoftwareTitle.Value)

	assert.True(t, p.ReleaseDate.Set)
	assert.True(t, p.ReleaseDate.Null)

	assert.True(t, p.Licenses.Present())
	assert.Empty(t, p.Licenses.Value)

	assert.True(t, p.Keywords.Set)
	assert.True(t, p.Keywords.Null)

	assert.False(t, p.Description.Set)
	assert.False(t, p.DOI.Set)
}

func TestRecordPatch_MarshalOmitsUnsetFields(t *testing.T) {
	p := RecordPatch{
		SoftwareTitle: Some("Solver"),
		ReleaseDate:   Cleared[Date](),
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"software_title":"Solver","release_date":null}`, string(out))
}

func TestDate_ParseAndJSON(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 5), d)

	d2, err := ParseDate("2024-03-05T17:45:00Z")
	require.NoError(t, err)
	assert.True(t, d.Equal(d2))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05"`, string(out))

	_, err = ParseDate("5 March")
	assert.Error(t, err)
}

func TestRecord_JSONShape(t *testing.T) {
	d := NewDate(2023, time.January, 2)
	r := Record{
		CodeID:         5,
		WorkflowStatus: StatusSubmitted,
		Owner:          "alice@example.org",
		DOI:            "10.11578/dc.20230102.1",
		ReleaseDate:    &d,
		SoftwareTitle:  "Solver",
		Licenses:       []string{"MIT"},
		Version:        9,
	}
	out, err := r.MarshalState()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code_id": 5,
		"workflow_status": "Submitted",
		"owner": "alice@example.org",
		"doi": "10.11578/dc.20230102.1",
		"release_date": "2023-01-02",
		"software_title": "Solver",
		"licenses": ["MIT"]
	}`, string(out))

	back, err := UnmarshalRecord(out)
	require.NoError(t, err)
	assert.Equal(t, int64(0), back.Version)
	assert.Equal(t, r.DOI, back.DOI)
	assert.True(t, back.ReleaseDate.Equal(d))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	d := NewDate(2023, time.January, 2)
	r := Record{
		ReleaseDate: &d,
		Licenses:    []string{"MIT"},
		Developers:  []Party{{FirstName: "Ada", Affiliations: []string{"ORNL"}}},
	}
	c := r.Clone()
	c.Licenses[0] = "GPL"
	c.Developers[0].Affiliations[0] = "LBNL"
	*c.ReleaseDate = NewDate(2020, time.May, 1)

	assert.Equal(t, "MIT", r.Licenses[0])
	assert.Equal(t, "ORNL", r.Developers[0].Affiliations[0])
	assert.True(t, r.ReleaseDate.Equal(d))
}

func TestRecord_NormalizeAndRestricted(t *testing.T) {
	r := Record{
		Developers:              []Party{{FirstName: "Ada"}},
		SponsoringOrganizations: []Party{{OrganizationName: "DOE"}},
		AccessLimitations:       []string{"UNL"},
	}
	r.Normalize()
	assert.Equal(t, KindDeveloper, r.Developers[0].Kind)
	assert.Equal(t, KindSponsoringOrg, r.SponsoringOrganizations[0].Kind)
	assert.True(t, r.SponsoringOrganizations[0].Kind.IsOrganization())
	assert.False(t, r.RestrictedMetadata())

	r.AccessLimitations = append(r.AccessLimitations, "OUO")
	assert.True(t, r.RestrictedMetadata())
}

func TestStatus_RankAndParse(t *testing.T) {
	assert.True(t, StatusApproved.AtLeast(StatusSubmitted))
	assert.False(t, StatusSaved.AtLeast(StatusSubmitted))
	assert.Equal(t, -1, Status("Bogus").Rank())

	s, err := ParseStatus("Announced")
	require.NoError(t, err)
	assert.Equal(t, StatusAnnounced, s)

	_, err = ParseStatus("")
	assert.Error(t, err)
	_, err = ParseStatus("Published")
	assert.Error(t, err)
}
