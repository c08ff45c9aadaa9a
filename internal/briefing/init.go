package briefing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adestefa/ccmem/internal/store"
)

// Profile is the project knowledge seeded by Init, keyed by section.
type Profile struct {
	General      []store.KeyValue `yaml:"general"`
	Architecture []store.KeyValue `yaml:"architecture"`
	Operations   []store.KeyValue `yaml:"operations"`
	Deployment   []store.KeyValue `yaml:"deployment"`
	Testing      []store.KeyValue `yaml:"testing"`
}

func (p *Profile) entries(s store.Section) []store.KeyValue {
	switch s {
	case store.SectionGeneral:
		return p.General
	case store.SectionArchitecture:
		return p.Architecture
	case store.SectionOperations:
		return p.Operations
	case store.SectionDeployment:
		return p.Deployment
	default:
		return p.Testing
	}
}

// LoadProfile reads a YAML profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &p, nil
}

// stack is what a marker file in the project root says about it.
type stack struct {
	marker    string
	language  string
	start     string
	test      string
	framework string
}

var stacks = []stack{
	{"go.mod", "Go", "go run ./...", "go test ./...", "go"},
	{"package.json", "JavaScript", "npm start", "npm test", "node"},
	{"pyproject.toml", "Python", "python -m app", "pytest", "python"},
	{"requirements.txt", "Python", "python main.py", "pytest", "python"},
	{"Cargo.toml", "Rust", "cargo run", "cargo test", "cargo"},
}

// DefaultProfile derives a minimal profile from dir: its name and, when a
// known build file is present, the language with its usual commands.
func DefaultProfile(dir string) *Profile {
	p := &Profile{
		General: []store.KeyValue{{Key: "name", Value: filepath.Base(dir)}},
	}
	for _, s := range stacks {
		if _, err := os.Stat(filepath.Join(dir, s.marker)); err != nil {
			continue
		}
		p.General = append(p.General, store.KeyValue{Key: "primary_language", Value: s.language})
		p.Architecture = append(p.Architecture, store.KeyValue{Key: "framework", Value: s.framework + " (detected from " + s.marker + ")"})
		p.Operations = append(p.Operations,
			store.KeyValue{Key: "start_command", Value: s.start},
			store.KeyValue{Key: "test_command", Value: s.test},
		)
		p.Testing = append(p.Testing, store.KeyValue{Key: "test_framework", Value: s.test})
		break
	}
	return p
}

// Init seeds the knowledge tables from p in one transaction and reports
// what was written.
func (a *Assembler) Init(ctx context.Context, p *Profile) (string, error) {
	counts := make(map[store.Section]int)
	err := a.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, sec := range store.Sections {
			for _, e := range p.entries(sec) {
				if strings.TrimSpace(e.Key) == "" {
					continue
				}
				if err := tx.SetInfo(ctx, sec, e.Key, e.Value); err != nil {
					return err
				}
				counts[sec]++
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# CCMem Project Initialization\n\n")
	if len(p.General) > 0 || len(p.Architecture) > 0 {
		b.WriteString("## 🔍 Project Discovery\n")
		for _, e := range append(append([]store.KeyValue{}, p.General...), p.Architecture...) {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.Key, e.Value)
		}
		b.WriteString("\n")
	}
	b.WriteString("## ✅ Database Initialization Complete\n")
	for _, sec := range store.Sections {
		fmt.Fprintf(&b, "- **%s**: %d entries added\n", sectionTitle(sec), counts[sec])
	}
	b.WriteString("\n## 🚀 Next Steps\n")
	b.WriteString("- Use `get-full-project-summary` to see complete project context\n")
	b.WriteString("- Use `/ccmem-prime` for comprehensive planning context\n")
	b.WriteString("- Start creating stories with `write-story` for development work\n")

	a.logger.Info("project initialized", "entries", counts)
	return b.String(), nil
}
