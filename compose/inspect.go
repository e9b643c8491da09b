package compose

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the subset of a compose definition the orchestrator cares about.
type File struct {
	Services map[string]Service `yaml:"services"`
}

type Service struct {
	Image    string   `yaml:"image"`
	Profiles []string `yaml:"profiles"`
}

// Inspect parses a compose definition to enumerate its services.
func Inspect(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("Unable to read the compose file: %s", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("Unable to parse the compose file: %s", err)
	}
	return f, nil
}

func (f File) HasService(name string) bool {
	_, ok := f.Services[name]
	return ok
}

func (f File) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileOf returns the first profile a service is gated behind, "" for
// always-on services.
func (f File) ProfileOf(name string) string {
	svc, ok := f.Services[name]
	if !ok || len(svc.Profiles) == 0 {
		return ""
	}
	return svc.Profiles[0]
}
