package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"noote/client/internal/api"
	"noote/client/internal/router"
	"noote/client/internal/tokenstore"
)

func TestEveryRouteHasATitle(t *testing.T) {
	for _, route := range router.DefaultRoutes() {
		title := titleFor(route)
		assert.NotEmpty(t, title)
		assert.NotEqual(t, route.Name, title, "route %s falls back to its name", route.Name)
	}
	assert.Equal(t, "custom", titleFor(router.Route{Name: "custom"}))
}

func TestNoteHeading(t *testing.T) {
	assert.Equal(t, "Plan", noteHeading(api.Note{Title: "Plan", IsPublic: true}))
	assert.Equal(t, "Plan by alice", noteHeading(api.Note{Title: "Plan", OwnerUsername: "alice", IsPublic: true}))
	assert.Equal(t, "Plan by alice (private)", noteHeading(api.Note{Title: "Plan", OwnerUsername: "alice"}))
}

func TestDescribeExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	assert.Empty(t, describeExpiry(tokenstore.Claims{}, now))
	assert.Equal(t, "token expired", describeExpiry(tokenstore.Claims{ExpiresAt: now.Add(-time.Minute)}, now))
	assert.Equal(t, "token expires 14:05", describeExpiry(tokenstore.Claims{ExpiresAt: now.Add(5*time.Hour + 5*time.Minute)}, now))
	assert.Equal(t, "token expires Mar 17 09:00", describeExpiry(tokenstore.Claims{ExpiresAt: now.Add(7 * 24 * time.Hour)}, now))
}
