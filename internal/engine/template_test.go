package engine

import (
	"testing"

	"github.com/havenwell/notify-engine/internal/domain"
)

func TestTemplateResolver(t *testing.T) {
	r := NewTemplateResolver()

	tests := []struct {
		name        string
		tpl         *domain.NotificationTemplate
		vars        map[string]string
		wantTitle   string
		wantMessage string
	}{
		{
			name: "declared variables substituted",
			tpl: &domain.NotificationTemplate{
				Title:     "Congrats, {{name}}!",
				Message:   "You reached {{milestone}}.",
				Variables: []string{"name", "milestone"},
			},
			vars:        map[string]string{"name": "Sam", "milestone": "7-day streak"},
			wantTitle:   "Congrats, Sam!",
			wantMessage: "You reached 7-day streak.",
		},
		{
			name: "spaced placeholders substituted",
			tpl: &domain.NotificationTemplate{
				Title:     "Hi {{ name }}",
				Message:   "Welcome back",
				Variables: []string{"name"},
			},
			vars:        map[string]string{"name": "Sam"},
			wantTitle:   "Hi Sam",
			wantMessage: "Welcome back",
		},
		{
			name: "missing variable left in place",
			tpl: &domain.NotificationTemplate{
				Title:     "Hello {{name}}",
				Message:   "Plain text",
				Variables: []string{"name"},
			},
			vars:        map[string]string{},
			wantTitle:   "Hello ",
			wantMessage: "Plain text",
		},
		{
			name: "liquid filter applied to undeclared variable",
			tpl: &domain.NotificationTemplate{
				Title:     "{{ name | upcase }}",
				Message:   "ok",
				Variables: nil,
			},
			vars:        map[string]string{"name": "sam"},
			wantTitle:   "SAM",
			wantMessage: "ok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, message := r.Resolve(tt.tpl, tt.vars)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}
