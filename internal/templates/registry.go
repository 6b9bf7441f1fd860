package templates

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the document templates. It is immutable after loading.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry loads the embedded template catalog
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from catalog YAML
func Parse(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template catalog: %w", err)
	}

	r := &Registry{templates: make(map[string]*Template, len(file.Templates))}
	for docType, tmpl := range file.Templates {
		if tmpl.Extension != "" && !strings.HasPrefix(tmpl.Extension, ".") {
			return nil, fmt.Errorf("template %s: extension %q must start with '.'", docType, tmpl.Extension)
		}
		if tmpl.ContentType == "" {
			return nil, fmt.Errorf("template %s: content_type is required", docType)
		}
		tmpl.DocType = docType
		r.templates[docType] = &tmpl
	}
	return r, nil
}

// Get returns the template for a docType
func (r *Registry) Get(docType string) (*Template, bool) {
	tmpl, ok := r.templates[docType]
	return tmpl, ok
}

// List returns every template sorted by docType
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.templates))
	for _, tmpl := range r.templates {
		out = append(out, *tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocType < out[j].DocType })
	return out
}
