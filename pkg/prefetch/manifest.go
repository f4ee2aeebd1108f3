package prefetch

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/wikifetch/pkg/wikiname"
)

// Manifest lists names to warm. It is read from TOML:
//
//	image_namespace = "File"
//	templates = ["Cite web", "Infobox person"]
//	images = ["Logo.png|thumb", "File:Map.svg|300px"]
type Manifest struct {
	ImageNamespace string   `toml:"image_namespace"`
	Templates      []string `toml:"templates"`
	Images         []string `toml:"images"`
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses raw TOML bytes into a Manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest TOML: %w", err)
	}
	if m.ImageNamespace == "" {
		m.ImageNamespace = wikiname.FileNamespace
	}
	return m, nil
}

// Jobs expands the manifest into jobs, templates first. Blank entries and
// duplicates are skipped.
func (m *Manifest) Jobs() []Job {
	jobs := make([]Job, 0, len(m.Templates)+len(m.Images))
	seen := make(map[Job]bool, cap(jobs))

	add := func(job Job) {
		job.Name = strings.TrimSpace(job.Name)
		if job.Name == "" || seen[job] {
			return
		}
		seen[job] = true
		jobs = append(jobs, job)
	}

	for _, name := range m.Templates {
		add(Job{Kind: KindTemplate, Name: name})
	}
	for _, spec := range m.Images {
		add(Job{Kind: KindImage, Name: spec, Namespace: m.ImageNamespace})
	}

	return jobs
}
