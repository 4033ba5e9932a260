package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// templateSet holds every query/update template loaded from a directory at
// startup, keyed by file name without extension. Rendering substitutes
// named parameters only — no query text is ever built by concatenation
// (rule 2 of the Persistent Store).
type templateSet struct {
	tmpl *template.Template
}

// loadTemplates parses every *.tmpl file in dir into a single named
// template set. A missing directory is treated as a configuration error
// since every select/construct/update/ask call needs a backing template.
func loadTemplates(dir string) (*templateSet, error) {
	if dir == "" {
		return nil, fmt.Errorf("store: template directory not configured")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: reading template directory %q: %w", dir, err)
	}

	root := template.New("store")
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("store: reading template %q: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		if _, err := root.New(name).Parse(string(body)); err != nil {
			return nil, fmt.Errorf("store: parsing template %q: %w", name, err)
		}
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("store: no .tmpl files found in %q", dir)
	}
	return &templateSet{tmpl: root}, nil
}

// render executes the named template with params, returning the finished
// query/update body.
func (t *templateSet) render(name string, params map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, params); err != nil {
		return "", fmt.Errorf("store: rendering template %q: %w", name, err)
	}
	return buf.String(), nil
}

// defaultTemplateBodies are the built-in templates used when no template
// directory is configured, covering the triple-pattern operations the core
// actually issues. A configured template directory replaces this whole set:
// only its .tmpl files are loaded, so it supplies every template itself.
var defaultTemplateBodies = map[string]string{
	"select-by-id": `SELECT ?p ?o WHERE { GRAPH <{{.graph}}> { <{{.subject}}> ?p ?o } }`,
	"select-recent": `SELECT ?s ?p ?o WHERE { GRAPH <{{.graph}}> { ?s ?p ?o . ?s <http://semem.dev/ns#timestamp> ?t } } ORDER BY DESC(?t) LIMIT {{.limit}}`,
	"construct-interaction": `CONSTRUCT { ?s ?p ?o } WHERE { BIND(<{{.subject}}> AS ?s) GRAPH <{{.graph}}> { ?s ?p ?o } }`,
	"ask-exists": `ASK { GRAPH <{{.graph}}> { <{{.subject}}> ?p ?o } }`,
	"ask-liveness": `ASK { ?s ?p ?o }`,
	"update-insert-interaction": `INSERT DATA { GRAPH <{{.graph}}> {
  <{{.subject}}> <http://semem.dev/ns#kind> "{{.kind}}" .
  <{{.subject}}> <http://semem.dev/ns#prompt> "{{.prompt}}" .
  <{{.subject}}> <http://semem.dev/ns#response> "{{.response}}" .
  <{{.subject}}> <http://semem.dev/ns#created> "{{.created}}" .
} }`,
	"update-insert-enhancement": `INSERT DATA { GRAPH <{{.graph}}> {
  <{{.subject}}> <http://semem.dev/ns#kind> "enhancement" .
  <{{.subject}}> <http://semem.dev/ns#response> "{{.response}}" .
  <{{.subject}}> <http://semem.dev/ns#sourceQuery> "{{.sourceQuery}}" .
  <{{.subject}}> <http://semem.dev/ns#provider> "{{.provider}}" .
  <{{.subject}}> <http://semem.dev/ns#cacheTTL> "{{.cacheTTL}}" .
} }`,
	"update-delete-interaction": `DELETE WHERE { GRAPH <{{.graph}}> { <{{.subject}}> ?p ?o } }`,
}

// loadDefaultTemplates parses the built-in template bodies, used when the
// store is configured without an explicit template directory (tests,
// minimal deployments).
func loadDefaultTemplates() (*templateSet, error) {
	root := template.New("store")
	for name, body := range defaultTemplateBodies {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("store: parsing built-in template %q: %w", name, err)
		}
	}
	return &templateSet{tmpl: root}, nil
}
