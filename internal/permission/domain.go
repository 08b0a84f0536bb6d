package permission

import "github.com/google/uuid"

// Role is a coarse privilege tier assigned to at most one row per identity.
// An identity without a role row is treated as RoleUser.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleBusinessManager Role = "business_manager"
	RoleUser            Role = "user"
)

// ParseRole normalizes a stored role value. Unknown or empty values fall
// back to the lowest privilege tier.
func ParseRole(value string) Role {
	switch Role(value) {
	case RoleAdmin, RoleBusinessManager, RoleUser:
		return Role(value)
	default:
		return RoleUser
	}
}

// Valid reports whether the role is one of the enumerated tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBusinessManager, RoleUser:
		return true
	}
	return false
}

// Page identifies a dashboard page gated by a page grant.
type Page string

const (
	PageDashboard        Page = "dashboard"
	PageAnalytics        Page = "analytics"
	PageCreatives        Page = "creatives"
	PageSales            Page = "sales"
	PageAffiliates       Page = "affiliates"
	PageSubscriptions    Page = "subscriptions"
	PageSettings         Page = "settings"
	PageUsers            Page = "users"
	PageBusinessManagers Page = "business-managers"
)

// AllPages lists the closed page enumeration in sidebar order.
var AllPages = []Page{
	PageDashboard,
	PageAnalytics,
	PageCreatives,
	PageSales,
	PageAffiliates,
	PageSubscriptions,
	PageSettings,
	PageUsers,
	PageBusinessManagers,
}

// ValidPage reports whether p belongs to the closed enumeration.
func ValidPage(p Page) bool {
	for _, known := range AllPages {
		if known == p {
			return true
		}
	}
	return false
}

// ChartType identifies a chart or KPI card. Chart identifiers are globally
// unique across pages.
type ChartType string

const (
	ChartKPITotalSpend   ChartType = "kpi_total_spend"
	ChartKPIRevenue      ChartType = "kpi_revenue"
	ChartKPIAvgTicket    ChartType = "kpi_avg_ticket"
	ChartKPITotalOrders  ChartType = "kpi_total_orders"
	ChartCreativePerf    ChartType = "creative_performance_chart"
	ChartCreativeSales   ChartType = "creative_sales_chart"
	ChartSalesSummary    ChartType = "sales_summary_cards"
	ChartSales           ChartType = "sales_chart"
	ChartCountrySales    ChartType = "country_sales_chart"
	ChartStateSales      ChartType = "state_sales_chart"
	ChartAffiliate       ChartType = "affiliate_chart"
	ChartSubsRenewals    ChartType = "subscription_renewals_chart"
	ChartSubsStatus      ChartType = "subscription_status_chart"
	ChartNewSubscribers  ChartType = "new_subscribers_chart"
)

// ChartCatalog maps every chart identifier to its owning page. The owning
// page is defined here as static data rather than inferred from the chart
// name at write time.
var ChartCatalog = map[ChartType]Page{
	ChartKPITotalSpend:  PageDashboard,
	ChartKPIRevenue:     PageDashboard,
	ChartKPIAvgTicket:   PageDashboard,
	ChartKPITotalOrders: PageDashboard,
	ChartCreativePerf:   PageCreatives,
	ChartCreativeSales:  PageCreatives,
	ChartSalesSummary:   PageSales,
	ChartSales:          PageSales,
	ChartCountrySales:   PageSales,
	ChartStateSales:     PageSales,
	ChartAffiliate:      PageAffiliates,
	ChartSubsRenewals:   PageSubscriptions,
	ChartSubsStatus:     PageSubscriptions,
	ChartNewSubscribers: PageSubscriptions,
}

// PageGrant is a stored allow/deny decision for one (identity, page) pair.
type PageGrant struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Page       Page      `json:"page"`
	Allowed    bool      `json:"allowed"`
}

// ChartGrant is a stored allow/deny decision for one (identity, chart) pair.
// Page is carried for grouping; chart identifiers remain globally unique.
type ChartGrant struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Chart      ChartType `json:"chart_type"`
	Page       Page      `json:"page"`
	CanView    bool      `json:"can_view"`
}
