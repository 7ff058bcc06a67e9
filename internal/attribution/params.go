package attribution

import (
	"net/url"
	"strings"
)

// WindowDays is the attribution window: how long a captured identifier
// survives in the jar.
const WindowDays = 30

// ParamKeys are the persisted attribution identifiers, in capture order.
var ParamKeys = []string{"utm_source", "utm_medium", "utm_campaign", "gclid", "fbclid", "msclkid"}

// Params is one page view's resolved attribution state. All fields may be
// empty. ClientID is derived from the _ga cookie and never written back.
type Params struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	GCLID       string `json:"gclid,omitempty"`
	FBCLID      string `json:"fbclid,omitempty"`
	MSCLKID     string `json:"msclkid,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
}

// Empty reports whether no attribution identifier was captured.
func (p Params) Empty() bool {
	return p == Params{}
}

// Map returns the params keyed by wire name, empty values included.
func (p Params) Map() map[string]string {
	return map[string]string{
		"utm_source":   p.UTMSource,
		"utm_medium":   p.UTMMedium,
		"utm_campaign": p.UTMCampaign,
		"gclid":        p.GCLID,
		"fbclid":       p.FBCLID,
		"msclkid":      p.MSCLKID,
		"client_id":    p.ClientID,
	}
}

// Capture resolves attribution for the current page view. For each known
// key the URL query value wins and is persisted to the jar for the
// attribution window; absent URL values fall back to the jar. A visitor
// arriving on a campaign link keeps that attribution across later
// parameterless visits until the window lapses.
func Capture(query url.Values, jar Jar) Params {
	resolve := func(key string) string {
		if v := query.Get(key); v != "" {
			jar.Set(key, v, WindowDays)
			return v
		}
		return jar.Get(key)
	}

	return Params{
		UTMSource:   resolve("utm_source"),
		UTMMedium:   resolve("utm_medium"),
		UTMCampaign: resolve("utm_campaign"),
		GCLID:       resolve("gclid"),
		FBCLID:      resolve("fbclid"),
		MSCLKID:     resolve("msclkid"),
		ClientID:    GAClientID(jar),
	}
}

// GAClientID derives the two-part GA client identifier from the _ga
// cookie: "GA1.1.123456.7890" yields "123456.7890". Read-only; the cookie
// is never written by this package.
func GAClientID(jar Jar) string {
	raw := jar.Get("_ga")
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, ".")
	if len(parts) < 4 {
		return ""
	}
	return parts[2] + "." + parts[3]
}
