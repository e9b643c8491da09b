// Package probe classifies the host a deployment will run on: distribution
// family and version, and the virtualization technology underneath.
package probe

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"mtpanel/mtpctl/domain"
)

// Prober inspects the host. A non-empty Root redirects every absolute probe
// path under a fixture tree.
type Prober struct {
	Root       string
	DetectVirt func() (string, error)
}

func New() *Prober {
	return &Prober{DetectVirt: runDetectVirt}
}

// Classify produces the environment classification. It never fails:
// anything unreadable or unrecognized lands in the unknown/none buckets.
func (p *Prober) Classify() domain.Environment {
	env := domain.Environment{OSFamily: domain.FamilyUnknown, Virt: domain.VirtNone}

	family, id, version := p.classifyOS()
	env.OSFamily = family
	env.OSID = id
	env.OSVersion = version
	env.Virt = p.classifyVirt()

	slog.Info("environment classified", "family", env.OSFamily, "id", env.OSID, "version", env.OSVersion, "virt", env.Virt)
	return env
}

func (p *Prober) path(name string) string {
	return filepath.Join(p.Root, name)
}

func (p *Prober) classifyOS() (domain.OSFamily, string, string) {
	if data, err := os.ReadFile(p.path("/etc/os-release")); err == nil {
		if family, id, version, ok := parseOSRelease(string(data)); ok {
			return family, id, version
		}
	}

	// pre-systemd RedHat derivatives
	if data, err := os.ReadFile(p.path("/etc/redhat-release")); err == nil {
		family, version := parseRedhatRelease(string(data))
		return family, "", version
	}

	return domain.FamilyUnknown, "", ""
}

func parseOSRelease(content string) (domain.OSFamily, string, string, bool) {
	fields := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}

	id := strings.ToLower(fields["ID"])
	version := fields["VERSION_ID"]

	// the distribution's own ID wins over its lineage
	candidates := []string{id}
	candidates = append(candidates, strings.Fields(fields["ID_LIKE"])...)
	for _, name := range candidates {
		if family := matchFamily(name); family != domain.FamilyUnknown {
			return family, id, version, true
		}
	}

	if id != "" {
		return domain.FamilyUnknown, id, version, true
	}
	return domain.FamilyUnknown, "", "", false
}

func matchFamily(name string) domain.OSFamily {
	switch strings.ToLower(name) {
	case "debian", "ubuntu":
		return domain.FamilyDebian
	case "rhel", "centos", "rocky", "almalinux":
		return domain.FamilyRedHat
	case "fedora":
		return domain.FamilyFedora
	}
	return domain.FamilyUnknown
}

var releaseVersionPattern = regexp.MustCompile(`release ([0-9]+(?:\.[0-9]+)*)`)

func parseRedhatRelease(content string) (domain.OSFamily, string) {
	family := domain.FamilyRedHat
	if strings.Contains(content, "Fedora") {
		family = domain.FamilyFedora
	}

	version := ""
	if m := releaseVersionPattern.FindStringSubmatch(content); m != nil {
		version = m[1]
	}
	return family, version
}

func (p *Prober) classifyVirt() domain.Virtualization {
	if p.DetectVirt != nil {
		if out, err := p.DetectVirt(); err == nil {
			return mapVirt(out)
		}
	}

	// PID 1 of a container carries a container= marker in its environment
	if data, err := os.ReadFile(p.path("/proc/1/environ")); err == nil {
		for _, kv := range strings.Split(string(data), "\x00") {
			if name, value, ok := strings.Cut(kv, "="); ok && name == "container" {
				return mapVirt(value)
			}
		}
	}

	// OpenVZ guests expose /proc/vz but not the host-only /proc/bc
	if _, err := os.Stat(p.path("/proc/vz")); err == nil {
		if _, err := os.Stat(p.path("/proc/bc")); err != nil {
			return domain.VirtOpenVZ
		}
	}

	return domain.VirtNone
}

func mapVirt(name string) domain.Virtualization {
	switch strings.TrimSpace(name) {
	case "", "none":
		return domain.VirtNone
	case "lxc", "lxc-libvirt":
		return domain.VirtLXC
	case "openvz":
		return domain.VirtOpenVZ
	}
	return domain.VirtOther
}

func runDetectVirt() (string, error) {
	if _, err := exec.LookPath("systemd-detect-virt"); err != nil {
		return "", err
	}
	out, err := exec.Command("systemd-detect-virt").Output()
	name := strings.TrimSpace(string(out))
	if name != "" {
		// exits 1 when it prints "none"; the answer is still valid
		return name, nil
	}
	return "", err
}
