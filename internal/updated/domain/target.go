// Package domain holds the data model shared across the daemon: the set of
// updatable Targets and the in-flight Jobs running against them.
package domain

import (
	"fmt"
	"strings"
)

// Class identifies what kind of entity a Target represents.
type Class string

const (
	ClassHost      Class = "host"
	ClassComponent Class = "component"
	ClassMachine   Class = "machine"
	ClassPortable  Class = "portable"
	ClassSysext    Class = "sysext"
	ClassConfext   Class = "confext"
)

// ImageKind describes the on-disk shape of an image-class target. It is
// only meaningful when Class is one of the image classes.
type ImageKind string

const (
	ImageInvalid     ImageKind = "invalid"
	ImageDirectory   ImageKind = "directory"
	ImageSubvolume   ImageKind = "subvolume"
	ImageRaw         ImageKind = "raw"
	ImageBlockDevice ImageKind = "block-device"
)

// IsImageClass reports whether c is one of the discovered-image classes, as
// opposed to host or component.
func (c Class) IsImageClass() bool {
	switch c {
	case ClassMachine, ClassPortable, ClassSysext, ClassConfext:
		return true
	default:
		return false
	}
}

// Target is one updatable entity: the host itself, a named component
// sub-tree of the host, or a discovered image.
type Target struct {
	Class Class
	Name  string
	Path  string
	Kind  ImageKind

	// busy is true while a mutating (update or vacuum) job runs against
	// this target. It is the only field ever mutated after construction.
	busy bool
}

// NewHostTarget returns the singleton Target representing the host itself.
func NewHostTarget(path string) *Target {
	return &Target{Class: ClassHost, Name: "", Path: path}
}

// NewComponentTarget returns a Target for a named component sub-tree of the
// host.
func NewComponentTarget(name, path string) *Target {
	return &Target{Class: ClassComponent, Name: name, Path: path}
}

// NewImageTarget returns a Target for a discovered image.
func NewImageTarget(class Class, name, path string, kind ImageKind) *Target {
	return &Target{Class: class, Name: name, Path: path, Kind: kind}
}

// StableID returns the identifier that is unique within the registry: the
// literal string "host" for the host target, otherwise "<class>:<name>".
func (t *Target) StableID() string {
	if t.Class == ClassHost {
		return "host"
	}
	return fmt.Sprintf("%s:%s", t.Class, t.Name)
}

// IsBusy reports whether a mutating job currently owns this target.
func (t *Target) IsBusy() bool { return t.busy }

// SetBusy marks or clears the target's mutating-job flag. Callers must hold
// whatever serialization the owning Manager provides; Target itself does
// no locking since the daemon's state mutation is confined to a single
// goroutine (see internal/updated/jobmanager).
func (t *Target) SetBusy(busy bool) { t.busy = busy }

// Selector returns the worker command-line argument that selects this
// target, or "" for the host (which needs no selector).
func (t *Target) Selector() string {
	switch t.Class {
	case ClassHost:
		return ""
	case ClassComponent:
		return "--component=" + t.Name
	default:
		switch t.Kind {
		case ImageDirectory, ImageSubvolume:
			return "--root=" + t.Path
		case ImageRaw, ImageBlockDevice:
			return "--image=" + t.Path
		default:
			return ""
		}
	}
}

// busEscape replicates the D-Bus object-path escaping convention: any byte
// that isn't an ASCII letter or digit is replaced with "_" followed by its
// two-digit hex value, and a leading digit is escaped too since object path
// segments must start with a letter or underscore.
func busEscape(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if isAlnum && !(i == 0 && c >= '0' && c <= '9') {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "_%02x", c)
	}
	return b.String()
}

// ObjectPathSegment returns the bus-safe path segment for this target's
// stable ID, suitable for appending under ".../target/".
func (t *Target) ObjectPathSegment() string {
	return busEscape(t.StableID())
}
