package classify

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultChains []byte

// ChainPolicy controls what the engine does with chain matches.
type ChainPolicy string

const (
	// ChainExclude drops chains outright.
	ChainExclude ChainPolicy = "exclude"
	// ChainDeprioritize keeps chains but sorts them after independents.
	ChainDeprioritize ChainPolicy = "deprioritize"
)

// ParseChainPolicy returns the policy for s, defaulting to exclude.
func ParseChainPolicy(s string) (ChainPolicy, error) {
	switch ChainPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ChainExclude:
		return ChainExclude, nil
	case ChainDeprioritize:
		return ChainDeprioritize, nil
	default:
		return "", eris.Errorf("classify: unknown chain policy %q", s)
	}
}

// ChainFilter matches place names against a denylist of national chains.
type ChainFilter struct {
	names []string
}

// NewChainFilter builds a filter from the embedded list plus extra names.
func NewChainFilter(extra ...string) (*ChainFilter, error) {
	var doc struct {
		Chains []string `yaml:"chains"`
	}
	if err := yaml.Unmarshal(defaultChains, &doc); err != nil {
		return nil, eris.Wrap(err, "classify: parse chains")
	}
	names := lowerAll(append(doc.Chains, extra...))
	return &ChainFilter{names: names}, nil
}

// IsChain reports whether the lowercased, trimmed name contains a chain name.
func (f *ChainFilter) IsChain(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	return matches(n, f.names)
}

// Len returns the number of chain names.
func (f *ChainFilter) Len() int { return len(f.names) }
