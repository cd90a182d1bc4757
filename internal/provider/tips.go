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

const tipsSystemPrompt = `You give short, practical visitor tips about real places. ` +
	`If you do not know the place, say nothing rather than guess. Answer with a single JSON object.`

// LLMTips writes visitor tips for a place with a language model.
type LLMTips struct {
	adapterBase
	client anthropic.Client
	cfg    LLMConfig
}

// NewLLMTips creates the tips writer. It shares the discovery model settings.
func NewLLMTips(client anthropic.Client, cfg LLMConfig, opts ...AdapterOption) *LLMTips {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &LLMTips{adapterBase: newBase(SourceLLM, opts), client: client, cfg: cfg}
}

// Write returns up to count tips for p. A reply with no tips is ErrNotFound.
func (l *LLMTips) Write(ctx context.Context, p model.Place, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}
	temp := l.cfg.Temperature
	msg := anthropic.MessageRequest{
		Model:       l.cfg.Model,
		MaxTokens:   l.cfg.MaxTokens,
		System:      tipsSystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: tipsPrompt(p, count)}},
		Temperature: &temp,
	}
	resp, err := call(ctx, &l.adapterBase, "tips", func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return l.client.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	cost.FromContext(ctx).AddTokens(l.cfg.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	raw, err := anthropic.ExtractJSON(resp.Text())
	if err != nil {
		return nil, &Error{Provider: l.name, Op: "tips", Kind: ErrUnavailable, Err: err}
	}
	var reply struct {
		Tips []string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, &Error{Provider: l.name, Op: "tips", Kind: ErrUnavailable, Err: eris.Wrap(err, "llm: decode tips reply")}
	}

	tips := make([]string, 0, count)
	for _, t := range reply.Tips {
		if t = strings.TrimSpace(t); t != "" && len(tips) < count {
			tips = append(tips, t)
		}
	}
	if len(tips) == 0 {
		return nil, &Error{Provider: l.name, Op: "tips", Kind: ErrNotFound, Err: eris.New("empty tips reply")}
	}
	return tips, nil
}

func tipsPrompt(p model.Place, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give %d short insider tips for visiting %q", count, p.Name)
	if p.Category.Valid() {
		fmt.Fprintf(&b, " (%s)", p.Category)
	}
	if p.Address != "" {
		fmt.Fprintf(&b, " at %s", p.Address)
	} else if p.Locality != "" {
		fmt.Fprintf(&b, " in %s", p.Locality)
	}
	b.WriteString(".\nEach tip is one sentence: what to order, when to go, or what not to miss.\n")
	b.WriteString(`Reply as {"tips":["...","..."]}`)
	return b.String()
}
