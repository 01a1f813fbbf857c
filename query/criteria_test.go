package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/query"
)

func TestCriteriaString(t *testing.T) {
	testCases := []struct {
		name  string
		build func(*query.Criteria)
		want  string
	}{
		{
			name:  "empty",
			build: func(c *query.Criteria) {},
			want:  "",
		},
		{
			name: "single keyword",
			build: func(c *query.Criteria) {
				c.Seen()
			},
			want: "SEEN",
		},
		{
			name: "chained terms join with space",
			build: func(c *query.Criteria) {
				c.Seen().Flagged().Undeleted()
			},
			want: "SEEN FLAGGED UNDELETED",
		},
		{
			name: "quoted string argument",
			build: func(c *query.Criteria) {
				c.From("alice@example.org")
			},
			want: `FROM "alice@example.org"`,
		},
		{
			name: "quotes inside argument are escaped",
			build: func(c *query.Criteria) {
				c.Subject(`say "hi"`)
			},
			want: `SUBJECT "say \"hi\""`,
		},
		{
			name: "non-ASCII argument becomes a literal",
			build: func(c *query.Criteria) {
				c.Subject("héllo")
			},
			want: "SUBJECT {6}\r\nhéllo",
		},
		{
			name: "date argument is zero-padded",
			build: func(c *query.Criteria) {
				c.Since(time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))
			},
			want: "SINCE 05-Mar-2026",
		},
		{
			name: "since and subject chain",
			build: func(c *query.Criteria) {
				c.Since(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)).Subject("hi")
			},
			want: `SINCE 01-Jan-2024 SUBJECT "hi"`,
		},
		{
			name: "numeric argument",
			build: func(c *query.Criteria) {
				c.Larger(2048)
			},
			want: "LARGER 2048",
		},
		{
			name: "not wraps the inner sub-chain",
			build: func(c *query.Criteria) {
				c.Not(func(inner *query.Criteria) {
					inner.Deleted()
				})
			},
			want: "NOT (DELETED)",
		},
		{
			name: "or combines two sub-chains",
			build: func(c *query.Criteria) {
				c.Or(
					func(left *query.Criteria) { left.From("a@example.org") },
					func(right *query.Criteria) { right.From("b@example.org") },
				)
			},
			want: `OR (FROM "a@example.org") (FROM "b@example.org")`,
		},
		{
			name: "header keyword uppercases the field",
			build: func(c *query.Criteria) {
				c.Header("x-spam-flag", "yes")
			},
			want: `HEADER X-SPAM-FLAG "yes"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := query.NewCriteria()
			tc.build(c)
			assert.Equal(t, tc.want, c.String())
		})
	}
}

func TestCriteriaClone(t *testing.T) {
	base := query.NewCriteria().Seen()
	clone := base.Clone()
	clone.Flagged()

	assert.Equal(t, "SEEN", base.String())
	assert.Equal(t, "SEEN FLAGGED", clone.String())
}

func TestCriteriaUID(t *testing.T) {
	var set imapkit.UIDSet
	set.AddNum(1, 2, 3)

	c := query.NewCriteria().UID(set)
	assert.Equal(t, "UID "+set.String(), c.String())
}
