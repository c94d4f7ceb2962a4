package graph

// ModuleSpec and EdgeSpec are the raw tuples handed over by graph ingestion.
type ModuleSpec struct {
	Name       string `json:"name" yaml:"name" toml:"name"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	Platform   string `json:"platform,omitempty" yaml:"platform,omitempty" toml:"platform,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty" toml:"collection,omitempty"`
}

type EdgeSpec struct {
	Source     string   `json:"source" yaml:"source" toml:"source"`
	Target     string   `json:"target" yaml:"target" toml:"target"`
	Kind       EdgeKind `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Collection string   `json:"collection,omitempty" yaml:"collection,omitempty" toml:"collection,omitempty"`
	Coupling   *int     `json:"coupling,omitempty" yaml:"coupling,omitempty" toml:"coupling,omitempty"`
}

// Description is an unordered bag of modules and dependency tuples.
type Description struct {
	Modules []ModuleSpec `json:"modules" yaml:"modules" toml:"modules"`
	Edges   []EdgeSpec   `json:"edges" yaml:"edges" toml:"edges"`
}

// FromDescription builds a graph, adding all modules before any edge.
// Structural errors are returned as-is.
func FromDescription(desc Description) (*Graph, error) {
	g := NewGraphWithCapacity(len(desc.Modules))
	for _, m := range desc.Modules {
		if err := g.AddNode(Node{
			Name:       m.Name,
			Path:       m.Path,
			Platform:   m.Platform,
			Collection: m.Collection,
		}); err != nil {
			return nil, err
		}
	}
	for _, e := range desc.Edges {
		id, err := g.AddEdge(Edge{
			Source:     e.Source,
			Target:     e.Target,
			Kind:       e.Kind,
			Collection: e.Collection,
		})
		if err != nil {
			return nil, err
		}
		// A pre-computed coupling is taken as measured, not as fallback.
		if e.Coupling != nil {
			g.SetCoupling(id, *e.Coupling, false)
		}
	}
	return g, nil
}

// Describe converts the graph's nodes and live edges back into a
// Description, preserving insertion order. Measured couplings are kept;
// fallback scores are not, so a rebuilt graph analyzes those edges again.
func (g *Graph) Describe() Description {
	desc := Description{
		Modules: make([]ModuleSpec, 0, len(g.nodes)),
		Edges:   make([]EdgeSpec, 0, g.live),
	}
	for _, n := range g.nodes {
		desc.Modules = append(desc.Modules, ModuleSpec{
			Name:       n.Name,
			Path:       n.Path,
			Platform:   n.Platform,
			Collection: n.Collection,
		})
	}
	for _, e := range g.Edges() {
		spec := EdgeSpec{
			Source:     e.Source,
			Target:     e.Target,
			Kind:       e.Kind,
			Collection: e.Collection,
		}
		if e.CouplingSet && !e.Fallback {
			coupling := e.Coupling
			spec.Coupling = &coupling
		}
		desc.Edges = append(desc.Edges, spec)
	}
	return desc
}
