package app

import (
	"strings"

	"staffqa/internal/model"
)

// Require is the single authorization check used by every service.
func Require(user *model.User, role model.Role) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.Role.Satisfies(role) {
		return ErrForbidden
	}
	return nil
}

// adminEmails is the configured set of primary administrators.
type adminEmails map[string]struct{}

func newAdminEmails(emails []string) adminEmails {
	set := make(adminEmails, len(emails))
	for _, email := range emails {
		if email = normalizeEmail(email); email != "" {
			set[email] = struct{}{}
		}
	}
	return set
}

func (a adminEmails) contains(email string) bool {
	_, ok := a[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
