// Package agents holds the catalog of backend agents a request can be
// addressed to: the built-in set plus user-provided YAML manifests.
package agents

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Agent describes one backend agent. DefaultText is used as the request
// text when the user provides none.
type Agent struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	DefaultText string `yaml:"defaultText"`
}

// Registry maps agent ids to their descriptors.
type Registry struct {
	agents map[string]Agent
	logger *slog.Logger
}

// builtins mirrors the backend's agent catalog.
func builtins() []Agent {
	return []Agent{
		{
			ID:          "pdf-to-markdown",
			Name:        "PDF to Markdown",
			Description: "Convert PDFs to Markdown and stream the output.",
			DefaultText: "Convert the attached PDF to markdown",
		},
		{
			ID:          "pptx-creator",
			Name:        "PPTX Creator",
			Description: "Create beautiful presentations from text.",
			DefaultText: "Create a presentation based on the following content:",
		},
		{
			ID:          "mailer",
			Name:        "Email Sender",
			Description: "Send rich text emails or files to any recipient.",
			DefaultText: "Send this message to the following email address:",
		},
		{
			ID:          "podcast-creator",
			Name:        "Podcast Creator",
			Description: "Turn your scripts into audio podcast episodes.",
			DefaultText: "Turn this script into a podcast episode:",
		},
		{
			ID:          "spotify-uploader",
			Name:        "Spotify Uploader",
			Description: "Publish audio content directly to Spotify.",
			DefaultText: "Upload this audio file to Spotify with the following title and description:",
		},
		{
			ID:          "text-to-speech",
			Name:        "Text to Speech",
			Description: "Converts text to speech.",
			DefaultText: "Convert the following convo to speech:",
		},
	}
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{agents: make(map[string]Agent), logger: logger}
	for _, a := range builtins() {
		r.agents[a.ID] = a
	}
	return r
}

// LoadDirectory merges agent manifests from YAML files in dir. A manifest
// holds one agent or a list; a manifest with an id matching a built-in
// overrides it. Unreadable or unparsable files are warned and skipped.
func (r *Registry) LoadDirectory(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.logger.Debug("agents directory does not exist, skipping", "dir", dir)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read agents dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("cannot read agent manifest", "path", path, "err", err)
			continue
		}

		for _, a := range parseManifest(data, path, r.logger) {
			if a.ID == "" {
				r.logger.Warn("agent manifest entry missing id, skipping", "path", path)
				continue
			}
			r.agents[a.ID] = a
			r.logger.Info("loaded agent manifest", "id", a.ID, "path", path)
		}
	}
	return nil
}

// parseManifest accepts either a single agent document or a list.
func parseManifest(data []byte, path string, logger *slog.Logger) []Agent {
	var list []Agent
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list
	}
	var one Agent
	if err := yaml.Unmarshal(data, &one); err != nil {
		logger.Warn("cannot parse agent manifest", "path", path, "err", err)
		return nil
	}
	return []Agent{one}
}

// Get looks up an agent by id.
func (r *Registry) Get(id string) (Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// List returns all agents sorted by id.
func (r *Registry) List() []Agent {
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
