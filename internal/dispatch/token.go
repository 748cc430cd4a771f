package dispatch

import "regexp"

var tokenRe = regexp.MustCompile(`^([a-z_]+)(?::(.+))?$`)

// ParseToken splits "name" or "name:payload". Names use lowercase letters and
// underscores only; the payload is everything after the first colon.
func ParseToken(data string) (name, payload string, ok bool) {
	m := tokenRe.FindStringSubmatch(data)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ValidName reports whether name can be registered as an action.
func ValidName(name string) bool {
	m := tokenRe.FindStringSubmatch(name)
	return m != nil && m[2] == "" && m[1] == name
}
