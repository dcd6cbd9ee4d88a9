package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sysupdate-systems/updated/internal/updated/domain"
)

// rootByClass mirrors the well-known search directories the reference
// worker itself scans for each image class.
var rootByClass = map[domain.Class]string{
	domain.ClassMachine:  "/var/lib/machines",
	domain.ClassPortable: "/var/lib/portables",
	domain.ClassSysext:   "/var/lib/extensions",
	domain.ClassConfext:  "/var/lib/confexts",
}

// FSDiscoverer enumerates image candidates by listing the well-known
// per-class directories. A ".raw" file is a raw image; anything else is
// treated as a directory image. There is no block-device or
// btrfs-subvolume detection, so ImageBlockDevice and ImageSubvolume are
// never produced here.
type FSDiscoverer struct{}

func (FSDiscoverer) Discover(class domain.Class) ([]Image, error) {
	root, ok := rootByClass[class]
	if !ok {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var images []Image
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(root, name)
		if strings.HasSuffix(name, ".raw") {
			images = append(images, Image{
				Name: strings.TrimSuffix(name, ".raw"),
				Path: path,
				Kind: domain.ImageRaw,
			})
			continue
		}
		if e.IsDir() {
			images = append(images, Image{
				Name: name,
				Path: path,
				Kind: domain.ImageDirectory,
			})
		}
	}
	return images, nil
}
