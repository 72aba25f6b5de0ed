package sqlinline

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestQueriesCarryUniqueMarkers(t *testing.T) {
	queries := map[string]string{
		"QEnsureUsersTable": QEnsureUsersTable,
		"QSelectUserByID":   QSelectUserByID,
		"QUpsertUser":       QUpsertUser,
		"QConsumeRequest":   QConsumeRequest,
		"QSelectUsageByID":  QSelectUsageByID,
		"QUpdateUserRole":   QUpdateUserRole,
		"QUpdateUserTier":   QUpdateUserTier,
		"QMarkUserVerified": QMarkUserVerified,
		"QCountAdmins":      QCountAdmins,
	}
	seen := make(map[string]string, len(queries))
	for name, q := range queries {
		first, _, _ := strings.Cut(q, "\n")
		if !assert.Regexp(t, markerPattern, first, name) {
			continue
		}
		if prev, dup := seen[first]; dup {
			t.Errorf("%s reuses the marker of %s", name, prev)
		}
		seen[first] = name
	}
}

func TestConsumeRequestOnlyReturnsAdmittedRows(t *testing.T) {
	assert.Contains(t, QConsumeRequest, "u.requests_today + 1 <= $2::int")
	assert.Contains(t, QConsumeRequest, "$2::int < 0")
	assert.Contains(t, QConsumeRequest, "returning u.requests_today")
}

// The day check must come from the updated row, never from a CTE or a join.
func TestConsumeRequestReadsStalenessFromUpdatedRow(t *testing.T) {
	q := strings.ToLower(QConsumeRequest)
	assert.NotContains(t, q, "with ")
	assert.NotContains(t, q, "\nfrom ")
	assert.NotContains(t, q, "join")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(strings.SplitN(q, "\n", 2)[1]), "update users u"))

	stale := "(u.requests_reset_date at time zone 'utc')::date < ($3::timestamptz at time zone 'utc')::date"
	// requests_today case, requests_reset_date case and the where clause
	assert.Equal(t, 3, strings.Count(q, stale))
	assert.Equal(t, 3, strings.Count(q, "u.requests_reset_date is null"))
}
