// Package parser reduces a User-Agent header to the client platform shown in
// access logs.
package parser

import "strings"

const unknown = "Unknown"

type rule struct {
	name    string
	needles []string
}

// Order matters: mobile platforms report "linux"/"mac os" too, and Edge and
// in-app scanners embed the Chrome token.
var (
	osRules = []rule{
		{name: "Android", needles: []string{"android"}},
		{name: "iOS", needles: []string{"iphone", "ipad", "ipod"}},
		{name: "Windows", needles: []string{"windows"}},
		{name: "macOS", needles: []string{"mac os", "macintosh"}},
		{name: "Linux", needles: []string{"linux"}},
	}
	browserRules = []rule{
		{name: "Edge", needles: []string{"edg/", "edge/"}},
		{name: "Firefox", needles: []string{"firefox", "fxios"}},
		{name: "Chrome", needles: []string{"chrome", "crios"}},
		{name: "Safari", needles: []string{"safari"}},
		{name: "curl", needles: []string{"curl/"}},
		{name: "Go", needles: []string{"go-http-client"}},
	}
)

type Client struct {
	OS      string
	Browser string
}

func (c Client) String() string {
	return c.Browser + "/" + c.OS
}

func ParseUserAgent(ua string) Client {
	lower := strings.ToLower(ua)
	return Client{OS: match(lower, osRules), Browser: match(lower, browserRules)}
}

func match(ua string, rules []rule) string {
	for _, r := range rules {
		if containsAny(ua, r.needles) {
			return r.name
		}
	}
	return unknown
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
