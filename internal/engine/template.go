package engine

import (
	"log"
	"strings"

	"github.com/osteele/liquid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// TemplateResolver renders notification templates. Declared variables are
// substituted directly; the result then passes through a liquid render so
// templates may also use filters and conditionals. A render failure falls
// back to the direct substitution rather than blocking the notification.
type TemplateResolver struct {
	engine *liquid.Engine
}

func NewTemplateResolver() *TemplateResolver {
	return &TemplateResolver{engine: liquid.NewEngine()}
}

// Resolve renders the template's title and message with the given variables.
// Variables the caller did not supply are left in place so the gap is visible
// downstream instead of silently vanishing.
func (r *TemplateResolver) Resolve(tpl *domain.NotificationTemplate, vars map[string]string) (title, message string) {
	title = r.render(tpl.Title, tpl.Variables, vars)
	message = r.render(tpl.Message, tpl.Variables, vars)
	return title, message
}

func (r *TemplateResolver) render(text string, declared []string, vars map[string]string) string {
	out := text
	for _, name := range declared {
		val, ok := vars[name]
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+name+"}}", val)
		out = strings.ReplaceAll(out, "{{ "+name+" }}", val)
	}

	if !strings.Contains(out, "{{") && !strings.Contains(out, "{%") {
		return out
	}

	bindings := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		bindings[k] = v
	}
	rendered, err := r.engine.ParseAndRenderString(out, bindings)
	if err != nil {
		log.Printf("[Engine] template render error, using direct substitution: %v", err)
		return out
	}
	return rendered
}
