// Package resources enumerates the protected entity types of the back office
// and the endpoint naming conventions the upstream API expects for them.
package resources

import (
	"net/url"
	"sort"
	"strings"
)

// Resource identifies a protected entity type. The set is closed: any name
// outside it is a caller bug, not a runtime permission denial.
type Resource int

const (
	// None is the sentinel "no permission required" resource.
	None Resource = iota
	Events
	News
	JobOffers
	JobApplications
	Users
	Roles
	Permissions
	ContactRequests
	Pages
	Documents
)

var names = map[Resource]string{
	None:            "none",
	Events:          "events",
	News:            "news",
	JobOffers:       "job-offers",
	JobApplications: "job-applications",
	Users:           "users",
	Roles:           "roles",
	Permissions:     "permissions",
	ContactRequests: "contact-requests",
	Pages:           "pages",
	Documents:       "documents",
}

var byName = func() map[string]Resource {
	m := make(map[string]Resource, len(names))
	for r, n := range names {
		m[n] = r
	}
	return m
}()

// String returns the symbolic name used in grant payloads and endpoint paths.
func (r Resource) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return "unknown"
}

// Parse maps a symbolic name back to its Resource. The second return value is
// false for names outside the registry.
func Parse(name string) (Resource, bool) {
	r, ok := byName[strings.TrimSpace(strings.ToLower(name))]
	return r, ok
}

// All lists every real resource, sentinel excluded, in stable order.
func All() []Resource {
	out := make([]Resource, 0, len(names)-1)
	for r := range names {
		if r != None {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Verb names a mutation flavour. Delete, status toggles and password changes
// are POSTs to a tag-suffixed path rather than distinct HTTP methods; the
// upstream API depends on that convention exactly.
type Verb string

const (
	VerbCreate         Verb = "create"
	VerbUpdate         Verb = "update"
	VerbPatch          Verb = "patch"
	VerbDelete         Verb = "delete"
	VerbToggleStatus   Verb = "toggle-status"
	VerbChangePassword Verb = "change-password"
)

// tag-suffixed verbs are POSTed to "<base>-<tag>/<id>".
var verbTags = map[Verb]string{
	VerbDelete:         "delete",
	VerbToggleStatus:   "toggle-status",
	VerbChangePassword: "change-password",
}

// BasePath returns the authenticated endpoint path for a resource.
func BasePath(r Resource) string {
	return names[r]
}

// OpenPath returns the public, unauthenticated sibling of the list endpoint.
func OpenPath(r Resource) string {
	return "open-" + names[r]
}

// ListPath builds the list endpoint path with a canonical query string. Keys
// are emitted in sorted order so identical logical parameter sets always
// produce identical URLs.
func ListPath(r Resource, params map[string]string) string {
	return withQuery(BasePath(r), params)
}

// DetailPath builds the detail endpoint path for a single record.
func DetailPath(r Resource, id string, params map[string]string) string {
	return withQuery(BasePath(r)+"/"+url.PathEscape(id), params)
}

// MutationPath builds the path a mutation verb addresses. Create targets the
// base path; update and patch address the record directly; tag verbs POST to
// the suffixed sibling path.
func MutationPath(r Resource, verb Verb, id string) string {
	base := BasePath(r)
	switch verb {
	case VerbCreate:
		return base
	case VerbUpdate, VerbPatch:
		return base + "/" + url.PathEscape(id)
	default:
		if tag, ok := verbTags[verb]; ok {
			if id == "" {
				return base + "-" + tag
			}
			return base + "-" + tag + "/" + url.PathEscape(id)
		}
		return base
	}
}

// Method returns the HTTP method a mutation verb travels as.
func (v Verb) Method() string {
	switch v {
	case VerbUpdate:
		return "PUT"
	case VerbPatch:
		return "PATCH"
	default:
		return "POST"
	}
}

// CanonicalQuery encodes params with fixed, deterministic key ordering.
func CanonicalQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func withQuery(path string, params map[string]string) string {
	q := CanonicalQuery(params)
	if q == "" {
		return path
	}
	return path + "?" + q
}
