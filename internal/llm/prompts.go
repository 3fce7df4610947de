package llm

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

// Prompt is a versioned prompt definition loaded from prompts/<name>.yaml.
type Prompt struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	System  string   `yaml:"system"`
	Rules   []string `yaml:"rules"`
	Repair  string   `yaml:"repair"`
	Schema  string   `yaml:"schema"`
}

var (
	promptMu    sync.Mutex
	promptCache = map[string]Prompt{}
)

// LoadPrompt parses and caches an embedded prompt.
func LoadPrompt(name string) (Prompt, error) {
	promptMu.Lock()
	defer promptMu.Unlock()
	if p, ok := promptCache[name]; ok {
		return p, nil
	}
	raw, err := promptFiles.ReadFile("prompts/" + name + ".yaml")
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt %s: %w", name, err)
	}
	var p Prompt
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Prompt{}, fmt.Errorf("prompt %s: parse: %w", name, err)
	}
	if strings.TrimSpace(p.System) == "" {
		return Prompt{}, fmt.Errorf("prompt %s: system text is empty", name)
	}
	promptCache[name] = p
	return p, nil
}

// Render substitutes {{key}} placeholders in the system text and appends the rules.
func (p Prompt) Render(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Replace(p.System)))
	if len(p.Rules) > 0 {
		b.WriteString("\n\nRules:")
		for i, rule := range p.Rules {
			fmt.Fprintf(&b, "\n%d. %s", i+1, strings.TrimSpace(r.Replace(rule)))
		}
	}
	return b.String()
}
