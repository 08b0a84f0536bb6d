package permission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAccessPageDeniesWithoutGrantRow(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleBusinessManager} {
		set := NewGrantSet(role, nil, nil)
		for _, page := range AllPages {
			assert.False(t, set.CanAccessPage(page), "role %s page %s", role, page)
		}
	}
}

func TestCanAccessPageAdminIgnoresGrantContent(t *testing.T) {
	id := uuid.New()
	cases := map[string]GrantSet{
		"empty":         NewGrantSet(RoleAdmin, nil, nil),
		"explicit deny": NewGrantSet(RoleAdmin, []PageGrant{{IdentityID: id, Page: PageSales, Allowed: false}}, nil),
		"still loading": EmptyGrantSet(RoleAdmin),
	}
	for name, set := range cases {
		for _, page := range AllPages {
			assert.True(t, set.CanAccessPage(page), "%s: page %s", name, page)
		}
	}
}

func TestCanAccessPageFollowsGrantRow(t *testing.T) {
	id := uuid.New()
	set := NewGrantSet(RoleUser, []PageGrant{
		{IdentityID: id, Page: PageSales, Allowed: true},
		{IdentityID: id, Page: PageCreatives, Allowed: false},
	}, nil)

	assert.True(t, set.CanAccessPage(PageSales))
	assert.False(t, set.CanAccessPage(PageCreatives))
	// No inheritance: each page stands alone.
	assert.False(t, set.CanAccessPage(PageDashboard))
}

func TestLoadingStateDeniesNonAdmins(t *testing.T) {
	set := EmptyGrantSet(RoleUser)
	assert.False(t, set.CanAccessPage(PageDashboard))
	assert.False(t, set.CanViewChart(ChartSales, ""))
}

func TestCanViewChart(t *testing.T) {
	id := uuid.New()
	set := NewGrantSet(RoleUser, nil, []ChartGrant{
		{IdentityID: id, Chart: ChartSales, Page: PageSales, CanView: true},
		{IdentityID: id, Chart: ChartAffiliate, Page: PageAffiliates, CanView: false},
	})

	assert.True(t, set.CanViewChart(ChartSales, ""))
	// Page narrows the match rather than forming a compound key.
	assert.True(t, set.CanViewChart(ChartSales, PageSales))
	assert.False(t, set.CanViewChart(ChartSales, PageDashboard))
	assert.False(t, set.CanViewChart(ChartAffiliate, ""))
	assert.False(t, set.CanViewChart(ChartKPIRevenue, ""))

	admin := NewGrantSet(RoleAdmin, nil, nil)
	assert.True(t, admin.CanViewChart(ChartKPIRevenue, PageDashboard))
}

func TestChartCatalogCoversEveryChart(t *testing.T) {
	require.NotEmpty(t, ChartCatalog)
	for chart, page := range ChartCatalog {
		assert.True(t, ValidPage(page), "chart %s maps to unknown page %s", chart, page)
	}
}

func TestParseRoleFallsBackToUser(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleBusinessManager, ParseRole("business_manager"))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.Equal(t, RoleUser, ParseRole("superuser"))
}
