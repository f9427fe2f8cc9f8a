package crawler

import "strings"

// RequiredPageTypes lists the legal and informational pages every site
// is expected to link to, in report order.
var RequiredPageTypes = []string{"about", "contact", "privacy", "terms", "disclaimer"}

// RequiredPages splits RequiredPageTypes into those some link mentions
// and those none does.
type RequiredPages struct {
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

// CheckRequired matches each required page type as a substring of the
// lowercased links. Output order follows RequiredPageTypes.
func CheckRequired(links []string) RequiredPages {
	res := RequiredPages{Found: []string{}, Missing: []string{}}

	lowered := make([]string, len(links))
	for i, l := range links {
		lowered[i] = strings.ToLower(l)
	}

	for _, kind := range RequiredPageTypes {
		found := false
		for _, l := range lowered {
			if strings.Contains(l, kind) {
				found = true
				break
			}
		}
		if found {
			res.Found = append(res.Found, kind)
		} else {
			res.Missing = append(res.Missing, kind)
		}
	}
	return res
}
