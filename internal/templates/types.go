package templates

// Template describes how a typed document starts out
type Template struct {
	// DocType is the catalog key (set during loading)
	DocType string `yaml:"-" json:"docType"`

	DisplayName string `yaml:"display_name" json:"displayName"`
	Extension   string `yaml:"extension" json:"extension"`
	ContentType string `yaml:"content_type" json:"contentType"`
	Content     string `yaml:"content" json:"content"`
}

// catalogFile is the shape of config/templates.yaml
type catalogFile struct {
	Templates map[string]Template `yaml:"templates"`
}
