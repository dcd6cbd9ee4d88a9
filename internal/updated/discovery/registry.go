// Package discovery maintains the daemon's lazily-populated Target
// registry: the host, its components, and any discovered images. The
// registry is rebuilt from scratch on first use after every idle flush,
// since the set of images on disk can change while the daemon is quiet.
package discovery

import (
	"fmt"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
	"github.com/sysupdate-systems/updated/internal/updated/worker"
	"github.com/sysupdate-systems/updated/pkg/config"
	"github.com/sysupdate-systems/updated/pkg/logger"
)

// Image describes one candidate image target found on disk, before it has
// been probed for a default transfer definition.
type Image struct {
	Name string
	Path string
	Kind domain.ImageKind
}

// ImageDiscoverer enumerates candidate image targets of one class. The
// production implementation walks the well-known image directories; tests
// supply a stub.
type ImageDiscoverer interface {
	Discover(class domain.Class) ([]Image, error)
}

// Registry holds the current Target set. Like Job and Target, it does its
// own no locking: every method is called only from the manager's
// state-owning goroutine (see internal/updated/jobmanager).
type Registry struct {
	discoverer ImageDiscoverer
	log        *logger.Logger

	loaded  bool
	targets map[string]*domain.Target
}

// NewRegistry returns an empty, unloaded Registry. EnsureLoaded populates
// it on first use.
func NewRegistry(discoverer ImageDiscoverer) *Registry {
	return &Registry{
		discoverer: discoverer,
		log:        logger.New().WithField("component", "discovery"),
		targets:    make(map[string]*domain.Target),
	}
}

var imageClasses = []domain.Class{
	domain.ClassMachine,
	domain.ClassPortable,
	domain.ClassSysext,
	domain.ClassConfext,
}

// EnsureLoaded rebuilds the registry if it is not currently loaded (either
// never loaded, or flushed after the daemon went idle). The rebuild is a
// two-phase sequence: enumerate candidate images per class and probe each
// with a synchronous "components" query to see whether it carries a
// default transfer definition, then run the same probe against the host
// to pick up its own default flag and any named components.
func (r *Registry) EnsureLoaded(cfg *config.Config) error {
	if r.loaded {
		return nil
	}

	targets := make(map[string]*domain.Target)

	for _, class := range imageClasses {
		images, err := r.discoverer.Discover(class)
		if err != nil {
			r.log.Warn("image discovery failed", "class", class, "error", err)
			continue
		}
		for _, img := range images {
			t := domain.NewImageTarget(class, img.Name, img.Path, img.Kind)
			doc, err := worker.RunQuery(cfg, t, false, "components", "")
			if err != nil {
				r.log.Debug("dropping image candidate: components probe failed", "target", t.StableID(), "error", err)
				continue
			}
			if !hasDefault(doc) {
				continue
			}
			targets[t.StableID()] = t
		}
	}

	hostDoc, err := worker.RunQuery(cfg, nil, false, "components", "")
	if err != nil {
		r.log.Warn("host components probe failed", "error", err)
	} else {
		if hasDefault(hostDoc) {
			host := domain.NewHostTarget("/")
			targets[host.StableID()] = host
		}
		for _, name := range componentNames(hostDoc) {
			c := domain.NewComponentTarget(name, fmt.Sprintf("/usr/lib/sysupdate.%s.d", name))
			targets[c.StableID()] = c
		}
	}

	r.targets = targets
	r.loaded = true
	r.log.Debug("registry rebuilt", "targets", len(targets))
	return nil
}

// Lookup returns the target with the given StableID, if loaded.
func (r *Registry) Lookup(id string) (*domain.Target, bool) {
	t, ok := r.targets[id]
	return t, ok
}

// List returns every currently-known target, order unspecified.
func (r *Registry) List() []*domain.Target {
	out := make([]*domain.Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	return out
}

// Flush discards the registry so the next EnsureLoaded call rebuilds it
// from scratch. Callers must only do this while no jobs are outstanding:
// Flush never checks busy targets itself, since by the time the manager
// calls it the job map is already known to be empty.
func (r *Registry) Flush() {
	r.targets = make(map[string]*domain.Target)
	r.loaded = false
	r.log.Debug("registry flushed")
}

func hasDefault(doc map[string]interface{}) bool {
	v, ok := doc["default"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func componentNames(doc map[string]interface{}) []string {
	raw, ok := doc["components"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names
}
