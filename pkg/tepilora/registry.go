package tepilora

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// ParamSpec describes one parameter of a registered action.
type ParamSpec struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type,omitempty"`
	Required bool        `yaml:"required,omitempty"`
	Default  interface{} `yaml:"default,omitempty"`
	Nullable bool        `yaml:"nullable,omitempty"`
}

// ActionDescriptor is the typed call descriptor for one action: its
// dot-qualified name and parameter specs.
type ActionDescriptor struct {
	Action  string      `yaml:"action"`
	Summary string      `yaml:"summary,omitempty"`
	Params  []ParamSpec `yaml:"params,omitempty"`
}

// Namespace returns the part of the action before the first dot.
func (d *ActionDescriptor) Namespace() string {
	ns, _, _ := strings.Cut(d.Action, ".")

	return ns
}

// ValidateParams checks a parameter map against the descriptor:
// unknown names are rejected, declared defaults are filled in, and
// missing required parameters fail. The input map is not mutated.
func (d *ActionDescriptor) ValidateParams(params map[string]interface{}) (map[string]interface{}, error) {
	allowed := make(map[string]struct{}, len(d.Params))
	for _, spec := range d.Params {
		allowed[spec.Name] = struct{}{}
	}

	var unknown []string

	for name := range params {
		if _, ok := allowed[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, strings.Join(unknown, ", "))
	}

	return d.CompleteParams(params)
}

// CompleteParams fills declared defaults and enforces required
// parameters without rejecting undeclared names. The embedded schema
// is not exhaustive, so unknown-name rejection stays with the strict
// validation paths. The input map is not mutated.
func (d *ActionDescriptor) CompleteParams(params map[string]interface{}) (map[string]interface{}, error) {
	filled := make(map[string]interface{}, len(params)+len(d.Params))
	for k, v := range params {
		filled[k] = v
	}

	for _, spec := range d.Params {
		if _, present := filled[spec.Name]; present {
			continue
		}

		if spec.Default != nil {
			filled[spec.Name] = spec.Default

			continue
		}

		if spec.Required {
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, spec.Name)
		}
	}

	return filled, nil
}

// Registry maps action-name strings to typed call descriptors. It
// replaces attribute-style dynamic dispatch: callers look an action up
// by string at call time, and the execution engine stays independent
// of how the action string was produced.
type Registry struct {
	byAction map[string]*ActionDescriptor
}

type schemaFile struct {
	Version    string              `yaml:"version"`
	Operations []*ActionDescriptor `yaml:"operations"`
}

// NewRegistry parses a YAML operation schema into a Registry.
func NewRegistry(data []byte) (*Registry, error) {
	var file schemaFile

	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("parsing operation schema: %w", err)
	}

	reg := &Registry{byAction: make(map[string]*ActionDescriptor, len(file.Operations))}
	for _, op := range file.Operations {
		reg.byAction[op.Action] = op
	}

	return reg, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry built from the embedded
// operation schema. The embedded schema is known-good; a parse
// failure there is a packaging bug and panics at first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := NewRegistry(schemaYAML)
		if err != nil {
			panic(fmt.Sprintf("tepilora: embedded schema invalid: %v", err))
		}

		defaultRegistry = reg
	})

	return defaultRegistry
}

// Lookup returns the descriptor for an action, if registered.
func (r *Registry) Lookup(action string) (*ActionDescriptor, bool) {
	d, ok := r.byAction[action]

	return d, ok
}

// Namespaces returns the sorted set of registered namespaces.
func (r *Registry) Namespaces() []string {
	seen := map[string]struct{}{}
	for action := range r.byAction {
		ns, _, _ := strings.Cut(action, ".")
		seen[ns] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}

	sort.Strings(out)

	return out
}

// Actions returns the sorted registered actions of one namespace, or
// all actions when namespace is empty.
func (r *Registry) Actions(namespace string) []string {
	var out []string

	for action := range r.byAction {
		if namespace == "" || strings.HasPrefix(action, namespace+".") {
			out = append(out, action)
		}
	}

	sort.Strings(out)

	return out
}
