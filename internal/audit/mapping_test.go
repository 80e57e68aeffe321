package audit

import "testing"

func TestParsePath(t *testing.T) {
	cases := []struct {
		path     string
		action   string
		resource string
	}{
		{"/v1/invoices/delete", "delete", "invoice"},
		{"/v1/invoices/receivables", "receivables", "invoice"},
		{"/v1/team/invite", "invite", "team"},
		{"/v1/pairing/start", "start", "pairing"},
		{"/healthz", "unknown", "unknown"},
		{"/v2/invoices/delete", "unknown", "unknown"},
		{"", "unknown", "unknown"},
	}
	for _, c := range cases {
		got := ParsePath(c.path)
		if got.Action != c.action || got.Resource != c.resource {
			t.Errorf("ParsePath(%q) = %s/%s, want %s/%s", c.path, got.Action, got.Resource, c.action, c.resource)
		}
	}
}
