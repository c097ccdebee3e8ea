package dataset

import (
	"bytes"
	"fmt"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/hash"
	"gopkg.in/yaml.v3"
)

// Spec is the declarative description of a dataset, as found in catalog
// YAML files.
type Spec struct {
	Name        string       `yaml:"name,omitempty" json:"name,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Root        string       `yaml:"root" json:"root"`
	Sources     []SourceSpec `yaml:"sources" json:"sources"`
	Builds      []TargetSpec `yaml:"builds" json:"builds"`
	Packs       []PackSpec   `yaml:"packs,omitempty" json:"packs,omitempty"`

	// PostProcess and Loader name registered hooks; see pkg/registry.
	PostProcess string `yaml:"post_process,omitempty" json:"post_process,omitempty"`
	Loader      string `yaml:"loader,omitempty" json:"loader,omitempty"`
}

// SourceSpec declares a remote source. Path defaults to the URL basename
// and Extract to auto; a YAML null extract means none.
type SourceSpec struct {
	URL     string    `yaml:"url" json:"url"`
	Path    string    `yaml:"path,omitempty" json:"path,omitempty"`
	Hash    *HashSpec `yaml:"hash,omitempty" json:"hash,omitempty"`
	Extract string    `yaml:"extract,omitempty" json:"extract,omitempty"`
}

// TargetSpec declares a build artifact. From, when set, names the path of
// the artifact inside the extracted sources.
type TargetSpec struct {
	Path string    `yaml:"path" json:"path"`
	From string    `yaml:"from,omitempty" json:"from,omitempty"`
	Hash *HashSpec `yaml:"hash,omitempty" json:"hash,omitempty"`
}

// PackSpec declares an archive of build artifacts.
type PackSpec struct {
	Path    string    `yaml:"path,omitempty" json:"path,omitempty"`
	Members []string  `yaml:"members" json:"members"`
	Hash    *HashSpec `yaml:"hash,omitempty" json:"hash,omitempty"`
}

// HashSpec is a hash as written in a spec: either a bare sha256 digest or a
// {value, algorithm} mapping.
type HashSpec struct {
	Value     string `yaml:"value" json:"value" toml:"value"`
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty" toml:"algorithm,omitempty"`
}

// UnmarshalYAML accepts the scalar and mapping forms.
func (h *HashSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		h.Value = node.Value
		h.Algorithm = ""
		return nil
	case yaml.MappingNode:
		type plain HashSpec
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*h = HashSpec(p)
		return nil
	default:
		return fmt.Errorf("line %d: hash must be a string or a mapping", node.Line)
	}
}

// MarshalYAML writes the bare form for the default algorithm.
func (h HashSpec) MarshalYAML() (interface{}, error) {
	if h.Algorithm == "" || hash.Algorithm(h.Algorithm) == hash.DefaultAlgorithm {
		return h.Value, nil
	}
	type plain HashSpec
	return plain(h), nil
}

// Reference converts the spec into a validated hash reference.
func (h *HashSpec) Reference() (*hash.Reference, error) {
	if h == nil {
		return nil, nil
	}
	ref, err := hash.NewReference(h.Value, h.Algorithm)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// HashSpecOf is the inverse of Reference.
func HashSpecOf(ref hash.Reference) HashSpec {
	return HashSpec{Value: ref.Value(), Algorithm: string(ref.Algorithm())}
}

// UnmarshalYAML turns an explicit `extract: null` into "none"; decoding a
// null into a string would otherwise leave it empty, which means auto.
func (s *SourceSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain SourceSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == "extract" && value.ShortTag() == "!!null" {
				p.Extract = "none"
			}
		}
	}
	*s = SourceSpec(p)
	return nil
}

// ParseSpec decodes a YAML spec. Unknown keys are rejected.
func ParseSpec(data []byte) (Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return Spec{}, errors.Wrap(err, errors.ErrConfigParse, "invalid dataset spec")
	}
	return spec, nil
}

// DisplayName is the spec name, or its root when unnamed.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Root
}
