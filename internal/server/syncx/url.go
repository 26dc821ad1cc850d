package syncx

import (
	"net/url"
	"strconv"
)

// LandingURL is the public page of a record under the registry's site URL.
func LandingURL(siteURL string, codeID int64) string {
	u, err := url.JoinPath(siteURL, "biblio", strconv.FormatInt(codeID, 10))
	if err != nil {
		return ""
	}
	return u
}
