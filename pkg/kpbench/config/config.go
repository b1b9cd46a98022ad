package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// File is a run configuration file
type File struct {
	// Defaults apply to every run that leaves the field empty
	Defaults Defaults `yaml:"defaults"`
	Runs     []Run    `yaml:"runs"`
}

// Defaults holds the settings shared by the runs of a file
type Defaults struct {
	CacheDir  string `yaml:"cache_dir"`
	OutputDir string `yaml:"output_dir"`
	Workers   int    `yaml:"workers"`
}

// Run describes one method applied to one corpus
type Run struct {
	Name               string      `yaml:"name"`
	Corpus             CorpusSpec  `yaml:"corpus_builder"`
	DocumentBuilder    Component   `yaml:"document_builder"`
	CandidateExtractor Component   `yaml:"candidate_extractor"`
	CandidateClusterer Component   `yaml:"candidate_clusterer"`
	Ranker             Component   `yaml:"ranker"`
	Selector           Component   `yaml:"selector"`
	KeyphraseConsumers []Component `yaml:"keyphrase_consumers"`
	// Stemming compares candidates and references by stems; on by default
	Stemming *bool `yaml:"stemming"`
}

// CorpusSpec locates a corpus on disk
type CorpusSpec struct {
	Path     string `yaml:"path"`
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Encoding string `yaml:"encoding"`
	TrainRef string `yaml:"train_ref"`
	TestRef  string `yaml:"test_ref"`
}

// Component is a tagged union written as a mapping: type selects the
// implementation, lazy makes it load its output from the cache, and the
// remaining keys are the type-specific params. A bare string is shorthand
// for {type: <string>}.
type Component struct {
	Type string
	Lazy bool

	node *yaml.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Component) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		c.Type = n.Value
		return nil
	}
	var head struct {
		Type string `yaml:"type"`
		Lazy bool   `yaml:"lazy"`
	}
	if err := n.Decode(&head); err != nil {
		return err
	}
	c.Type, c.Lazy, c.node = head.Type, head.Lazy, n
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Component) MarshalYAML() (any, error) {
	if c.node != nil {
		return c.node, nil
	}
	if c.Type == "" {
		return nil, nil
	}
	return map[string]any{"type": c.Type, "lazy": c.Lazy}, nil
}

// Decode unmarshals the params into v. Absent params leave v untouched.
func (c Component) Decode(v any) error {
	if c.node == nil {
		return nil
	}
	if err := c.node.Decode(v); err != nil {
		return internalerr.Configf(c.Type, "params: %v", err)
	}
	return nil
}

// Fingerprint names the cache entries of the component. It covers the type
// and the params, but not the lazy flag, and is chained to the fingerprint
// of the component feeding it.
func (c Component) Fingerprint(upstream string) string {
	h := xxhash.New()
	_, _ = h.WriteString(upstream)
	_, _ = h.WriteString("\x00" + c.Type + "\x00")
	if c.node != nil && c.node.Kind == yaml.MappingNode {
		params := &yaml.Node{Kind: yaml.MappingNode}
		for i := 0; i+1 < len(c.node.Content); i += 2 {
			if c.node.Content[i].Value == "lazy" {
				continue
			}
			params.Content = append(params.Content, c.node.Content[i], c.node.Content[i+1])
		}
		if raw, err := yaml.Marshal(params); err == nil {
			_, _ = h.Write(raw)
		}
	}
	return fmt.Sprintf("%s-%016x", strings.ReplaceAll(c.Type, "+", "p"), h.Sum64())
}

// StemmingEnabled reports whether the run stems candidates and references.
func (r Run) StemmingEnabled() bool {
	return r.Stemming == nil || *r.Stemming
}

// Validate checks the fields every run needs
func (r Run) Validate() error {
	if r.Name == "" {
		return internalerr.Configf("name", "run without a name")
	}
	if r.Corpus.Path == "" {
		return internalerr.Configf("corpus_builder", "run %q: missing corpus path", r.Name)
	}
	if r.CandidateExtractor.Type == "" {
		return internalerr.Configf("candidate_extractor", "run %q: missing component", r.Name)
	}
	if r.Ranker.Type == "" {
		return internalerr.Configf("ranker", "run %q: missing component", r.Name)
	}
	return nil
}

// Load reads a run configuration file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a run configuration
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, internalerr.Configf("", "parse run file: %v", err)
	}
	if len(f.Runs) == 0 {
		return nil, internalerr.Configf("runs", "no runs configured")
	}
	seen := make(map[string]bool, len(f.Runs))
	for i := range f.Runs {
		if err := f.Runs[i].Validate(); err != nil {
			return nil, err
		}
		if seen[f.Runs[i].Name] {
			return nil, internalerr.Configf("name", "duplicate run %q", f.Runs[i].Name)
		}
		seen[f.Runs[i].Name] = true
	}
	return &f, nil
}

// Render returns the YAML of a run, as stored with its results
func (r Run) Render() string {
	out, err := yaml.Marshal(r)
	if err != nil {
		return ""
	}
	return string(out)
}
