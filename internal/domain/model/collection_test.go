package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/media-console/internal/domain/auth"
)

func TestLookupCollection(t *testing.T) {
	for _, name := range CollectionNames() {
		c, ok := LookupCollection(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name)
		assert.Equal(t, "/api/v1/"+name, c.Path)
	}

	_, ok := LookupCollection("secrets")
	assert.False(t, ok)
}

func TestCollections_ReportsArePageBased(t *testing.T) {
	reports, _ := LookupCollection("reports")
	assert.Equal(t, PaginationPage, reports.Pagination)

	brands, _ := LookupCollection("brands")
	assert.Equal(t, PaginationSkipLimit, brands.Pagination)
}

func TestCollections_UsersAreAdminOnly(t *testing.T) {
	users, _ := LookupCollection("users")
	assert.Equal(t, domainauth.RoleAdmin, users.ReadRole)
	assert.Equal(t, domainauth.RoleAdmin, users.WriteRole)
}

func TestTaskState_Terminal(t *testing.T) {
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.False(t, TaskPending.Terminal())
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "green", StatusColor("completed"))
	assert.Equal(t, "red", StatusColor("FAILED"))
	assert.Equal(t, "blue", StatusColor("running"))
	assert.Equal(t, "yellow", StatusColor("scheduled"))
	assert.Equal(t, "gray", StatusColor("paused"))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "-", FormatTimestamp(""))
	assert.Equal(t, "not-a-date", FormatTimestamp("not-a-date"))
	assert.Equal(t, "2025-03-04 10:30 UTC", FormatTimestamp("2025-03-04T12:30:00+02:00"))
}
