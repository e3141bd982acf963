// Package rolebased checks whether an email's local part addresses a
// function mailbox (admin@, support@, ...) rather than a person.
package rolebased

import (
	_ "embed"
	"strings"
)

//go:embed list.txt
var rawList string

var roleSet map[string]struct{}

func init() {
	roleSet = make(map[string]struct{})
	for _, line := range strings.Split(rawList, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			roleSet[strings.ToLower(line)] = struct{}{}
		}
	}
}

// IsRoleBased returns whether the given local part is a known role-style
// mailbox name.
func IsRoleBased(local string) bool {
	_, ok := roleSet[strings.ToLower(local)]
	return ok
}
