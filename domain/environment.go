package domain

// OSFamily groups distributions by package-management lineage.
type OSFamily string

const (
	FamilyDebian  OSFamily = "debian"
	FamilyRedHat  OSFamily = "redhat"
	FamilyFedora  OSFamily = "fedora"
	FamilyUnknown OSFamily = "unknown"
)

// Virtualization identifies the technology the host itself runs under.
type Virtualization string

const (
	VirtNone   Virtualization = "none"
	VirtLXC    Virtualization = "lxc"
	VirtOpenVZ Virtualization = "openvz"
	VirtOther  Virtualization = "other"
)

// Environment is the host classification computed once at startup and read
// by every later step.
type Environment struct {
	OSFamily  OSFamily
	OSID      string // raw distribution identifier ("ubuntu", "centos"...)
	OSVersion string
	Virt      Virtualization
}

// Constrained reports whether the host runs inside container-based
// virtualization that cannot offer full kernel isolation to nested
// containers.
func (e Environment) Constrained() bool {
	return e.Virt == VirtLXC || e.Virt == VirtOpenVZ
}

func (e Environment) String() string {
	version := e.OSVersion
	if version == "" {
		version = "?"
	}
	return string(e.OSFamily) + " " + version + " (virt: " + string(e.Virt) + ")"
}
