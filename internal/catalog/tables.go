package catalog

// Default is the catalog of the CRM schema.
var Default = MustNew([]Table{
	{Name: "accounts", Module: "accounts"},
	{Name: "contacts", Module: "contacts", References: []string{"accounts"}},
	{Name: "leads", Module: "leads", References: []string{"accounts", "contacts"}},
	{Name: "deals", Module: "deals", References: []string{"accounts", "contacts"}},
	{Name: "deal_contacts", Module: "deals", References: []string{"deals", "contacts"}},
	{Name: "tickets", Module: "tickets", References: []string{"accounts", "contacts"}},
	{Name: "ticket_comments", Module: "tickets", References: []string{"tickets"}},
	{Name: "action_items", Module: "action_items", References: []string{"leads", "contacts", "accounts", "deals", "tickets"}},
	{Name: "notes", Module: "notes", References: []string{"accounts", "contacts", "deals", "leads"}},
	{Name: "notifications", Module: "notifications"},
	{Name: "audit_logs", Module: "audit_logs"},
})
