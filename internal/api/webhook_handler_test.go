package api

import "testing"

func TestWebhookPathParams(t *testing.T) {
	tests := []struct {
		rest string
		want map[string]string
	}{
		{"", nil},
		{"fields", map[string]string{"param1": "fields"}},
		{"fields/42", map[string]string{"param1": "fields", "param2": "42"}},
		{"fields//42/", map[string]string{"param1": "fields", "param2": "42"}},
	}

	for _, tt := range tests {
		got := webhookPathParams(tt.rest)
		if len(got) != len(tt.want) {
			t.Errorf("webhookPathParams(%q) = %v, want %v", tt.rest, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("webhookPathParams(%q)[%s] = %q, want %q", tt.rest, k, got[k], v)
			}
		}
	}
}
