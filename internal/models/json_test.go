package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRecord_AuthorShapes(t *testing.T) {
	testCases := []struct {
		name         string
		payload      string
		wantAuthor   bool
		wantID       *int64
		wantUsername string
		wantEmail    string
	}{
		{
			name:         "full user object",
			payload:      `{"id":1,"user":{"id":5,"username":"alice","email":"a@x.io","fullname":"Alice"}}`,
			wantAuthor:   true,
			wantID:       int64Ptr(5),
			wantUsername: "alice",
			wantEmail:    "a@x.io",
		},
		{
			name:       "bare numeric id",
			payload:    `{"id":1,"user":9}`,
			wantAuthor: true,
			wantID:     int64Ptr(9),
		},
		{
			name:       "numeric string id",
			payload:    `{"id":1,"user":"12"}`,
			wantAuthor: true,
			wantID:     int64Ptr(12),
		},
		{
			name:         "object without id",
			payload:      `{"id":1,"user":{"username":"bob"}}`,
			wantAuthor:   true,
			wantUsername: "bob",
		},
		{
			name:       "null user",
			payload:    `{"id":1,"user":null}`,
			wantAuthor: false,
		},
		{
			name:       "missing user",
			payload:    `{"id":1}`,
			wantAuthor: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c CommentRecord
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &c))

			if !tc.wantAuthor {
				assert.Nil(t, c.Author)
				return
			}
			require.NotNil(t, c.Author)
			assert.Equal(t, tc.wantID, c.Author.ID)
			assert.Equal(t, tc.wantUsername, c.Author.Username)
			assert.Equal(t, tc.wantEmail, c.Author.Email)
		})
	}
}

func TestAuthorRef_UnknownShapeKeepsListDecoding(t *testing.T) {
	payload := `[
		{"id":1,"content":"ok","user":{"id":5}},
		{"id":2,"content":"odd","user":"alice"},
		{"id":3,"content":"odder","user":[1,2]},
		{"id":4,"content":"bad fields","user":{"id":7,"username":42}}
	]`

	var records []CommentRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 4)

	assert.Equal(t, int64Ptr(5), records[0].Author.ID)
	for _, c := range records[1:] {
		require.NotNil(t, c.Author, "comment %d", c.ID)
		assert.Equal(t, AuthorRef{}, *c.Author, "comment %d", c.ID)
		assert.Equal(t, "user", c.Author.DisplayName())
	}
}

func TestAuthorRef_DisplayName(t *testing.T) {
	var nilRef *AuthorRef
	assert.Equal(t, "anonymous", nilRef.DisplayName())
	assert.Equal(t, "Alice", (&AuthorRef{Fullname: "Alice", Username: "alice"}).DisplayName())
	assert.Equal(t, "alice", (&AuthorRef{Username: "alice"}).DisplayName())
	assert.Equal(t, "user", (&AuthorRef{ID: int64Ptr(3)}).DisplayName())
}

func TestTimestamp_Formats(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    time.Time
	}{
		{"rfc3339", `"2024-03-05T10:20:30Z"`, time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"local date-time", `"2024-03-05T10:20:30"`, time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"fractional seconds", `"2024-03-05T10:20:30.250"`, time.Date(2024, 3, 5, 10, 20, 30, 250000000, time.UTC)},
		{"date only", `"2024-03-05"`, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"epoch millis", `1709634030000`, time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"null", `null`, time.Time{}},
		{"empty string", `""`, time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "got %v want %v", ts.Time, tc.want)
		})
	}
}

func TestTimestamp_InvalidString(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestIdentityClaim_Roles(t *testing.T) {
	claim := IdentityClaim{Roles: []string{RoleAdmin}}
	assert.True(t, claim.IsAdmin())
	assert.False(t, claim.HasRole(RoleLibrarian))
	assert.False(t, claim.IsEmpty())
	assert.True(t, IdentityClaim{}.IsEmpty())
}

func int64Ptr(v int64) *int64 {
	return &v
}
