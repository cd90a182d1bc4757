package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/sells-group/placefinder/internal/cost"
	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/pkg/anthropic"
)

const discoverySystemPrompt = `You are a well-travelled local guide. You recommend real, currently operating, ` +
	`independent places. Never invent places. Answer with a single JSON object and nothing else.`

// LLMConfig configures the discovery adapter.
type LLMConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// LLMDiscovery asks a language model for place suggestions. Its output is
// unverified and is resolved against a details provider by the engine.
type LLMDiscovery struct {
	adapterBase
	client anthropic.Client
	cfg    LLMConfig
}

// NewLLMDiscovery creates the adapter.
func NewLLMDiscovery(client anthropic.Client, cfg LLMConfig, opts ...AdapterOption) *LLMDiscovery {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &LLMDiscovery{adapterBase: newBase(SourceLLM, opts), client: client, cfg: cfg}
}

type llmPlace struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Vibe     string `json:"vibe"`
	Address  string `json:"address"`
}

type llmReply struct {
	City   string     `json:"city"`
	Places []llmPlace `json:"places"`
}

// Discover implements DiscoveryAdapter.
func (l *LLMDiscovery) Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error) {
	temp := l.cfg.Temperature
	msg := anthropic.MessageRequest{
		Model:       l.cfg.Model,
		MaxTokens:   l.cfg.MaxTokens,
		System:      discoverySystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: discoveryPrompt(req)}},
		Temperature: &temp,
	}

	resp, err := call(ctx, &l.adapterBase, "discover", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return l.client.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	cost.FromContext(ctx).AddTokens(l.cfg.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	reply, err := parseDiscovery(resp.Text())
	if err != nil {
		return nil, &Error{Provider: l.name, Op: "discover", Kind: ErrUnavailable, Err: err}
	}

	res := &DiscoverResult{City: strings.TrimSpace(reply.City)}
	for i, p := range reply.Places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		cat, _ := model.ParseCategory(p.Category)
		res.Candidates = append(res.Candidates, model.Candidate{
			Name:          name,
			Source:        SourceLLM,
			Address:       strings.TrimSpace(p.Address),
			CategoryGuess: cat,
			Vibe:          strings.TrimSpace(p.Vibe),
			Order:         i,
		})
	}
	return res, nil
}

func parseDiscovery(text string) (*llmReply, error) {
	raw, err := anthropic.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var r llmReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, eris.Wrap(err, "llm: decode discovery reply")
	}
	return &r, nil
}

func discoveryPrompt(req DiscoverRequest) string {
	cats := req.Categories
	if len(cats) == 0 {
		cats = model.Categories
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	n := req.MaxResults
	if n <= 0 {
		n = 15
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend up to %d places within %.1f km of latitude %.5f, longitude %.5f",
		n, req.RadiusKm, req.Center.Latitude, req.Center.Longitude)
	if req.LocalityHint != "" {
		fmt.Fprintf(&b, " (%s)", req.LocalityHint)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Categories: %s. EAT is food service, DRINK is bars and cafes, EXPLORE is sights and activities.\n",
		strings.Join(names, ", "))
	if q := strings.TrimSpace(req.Query); q != "" {
		fmt.Fprintf(&b, "The user is looking for: %q.\n", q)
	}
	b.WriteString("Prefer independent, well-loved places over chains.\n")
	if len(req.Exclude) > 0 {
		fmt.Fprintf(&b, "Do not include any of: %s.\n", strings.Join(req.Exclude, "; "))
	}
	b.WriteString(`Reply as {"city":"<city name>","places":[{"name":"...","category":"EAT|DRINK|EXPLORE","vibe":"<one short sentence>","address":"<street address if known>"}]}`)
	return b.String()
}
