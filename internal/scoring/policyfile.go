package scoring

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk layout read by LoadPolicy. Omitted fields keep
// their defaults; each keyword list replaces its default independently.
type policyFile struct {
	Policy   Policy `yaml:"policy"`
	Keywords struct {
		Fusion []string `yaml:"fusion"`
		Quick  []string `yaml:"quick"`
	} `yaml:"keywords"`
}

// LoadPolicy decodes a YAML policy document on top of the defaults.
func LoadPolicy(r io.Reader) (Policy, Vocabulary, error) {
	doc := policyFile{Policy: DefaultPolicy()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Policy{}, Vocabulary{}, fmt.Errorf("scoring: decode policy: %w", err)
	}
	if err := doc.Policy.Validate(); err != nil {
		return Policy{}, Vocabulary{}, err
	}

	vocab := DefaultVocabulary()
	if doc.Keywords.Fusion != nil {
		vocab.Fusion = NewKeywordSet(doc.Keywords.Fusion...)
	}
	if doc.Keywords.Quick != nil {
		vocab.Quick = NewKeywordSet(doc.Keywords.Quick...)
	}
	return doc.Policy, vocab, nil
}

// LoadPolicyFile reads a YAML policy document from path.
func LoadPolicyFile(path string) (Policy, Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, Vocabulary{}, fmt.Errorf("scoring: read policy file: %w", err)
	}
	return LoadPolicy(bytes.NewReader(b))
}
