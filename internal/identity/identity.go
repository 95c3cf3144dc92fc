// Package identity decodes the locally held session assertion into an
// advisory identity claim. Nothing here verifies signatures or expiry: the
// backend remains the only authority, the claim only drives UI affordances.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"libraryclient/internal/models"
)

// ErrMalformed is returned by Decode when the assertion has no readable payload
var ErrMalformed = errors.New("malformed session assertion")

// parser only splits and decodes; signatures are never checked here
var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Read decodes rawToken and returns an empty claim on any failure
func Read(rawToken string) models.IdentityClaim {
	claim, err := Decode(rawToken)
	if err != nil {
		return emptyClaim()
	}
	return claim
}

// Decode is Read with the decode failure reported, for callers that want to log it
func Decode(rawToken string) (models.IdentityClaim, error) {
	rawToken = strings.TrimSpace(rawToken)
	rawToken = strings.TrimPrefix(rawToken, "Bearer ")
	if rawToken == "" {
		return emptyClaim(), fmt.Errorf("%w: empty", ErrMalformed)
	}

	fields := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawToken, fields); err != nil {
		// an unknown or missing alg still leaves the payload decoded
		if !errors.Is(err, jwt.ErrTokenUnverifiable) {
			return emptyClaim(), fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claim := emptyClaim()
	if id, ok := firstID(fields, "id", "userId"); ok {
		claim.SubjectID = &id
	}
	claim.Username = firstString(fields, "sub", "username")
	claim.Email = firstString(fields, "email")
	claim.Roles = rolesFrom(firstPresent(fields, "role", "roles", "authorities"))

	return claim, nil
}

func emptyClaim() models.IdentityClaim {
	return models.IdentityClaim{Roles: []string{}}
}

// firstPresent returns the first key whose value is truthy
func firstPresent(fields map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := fields[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstID(fields map[string]interface{}, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case float64:
			if v != 0 && v == float64(int64(v)) {
				return int64(v), true
			}
		case string:
			if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id != 0 {
				return id, true
			}
		}
	}
	return 0, false
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}

// rolesFrom flattens a role/roles/authorities value and maps it onto role names
func rolesFrom(v interface{}) []string {
	var raw []string
	flatten(v, &raw)
	joined := strings.ToUpper(strings.Join(raw, ","))

	set := make(map[string]struct{})
	if strings.Contains(joined, "ADMIN") {
		set[models.RoleAdmin] = struct{}{}
	}
	if strings.Contains(joined, "LIBRARIAN") {
		set[models.RoleLibrarian] = struct{}{}
	}
	if strings.Contains(joined, "ROLE_USER") || containsToken(raw, "USER") {
		set[models.RoleUser] = struct{}{}
	}

	roles := make([]string, 0, len(set))
	for r := range set {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func containsToken(raw []string, token string) bool {
	for _, r := range raw {
		if strings.EqualFold(strings.TrimSpace(r), token) {
			return true
		}
	}
	return false
}

// flatten collects every string found in v, including "authority" entries of
// objects such as [{"authority":"ROLE_ADMIN"}]
func flatten(v interface{}, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []interface{}:
		for _, item := range t {
			flatten(item, out)
		}
	case map[string]interface{}:
		for _, item := range t {
			flatten(item, out)
		}
	}
}
