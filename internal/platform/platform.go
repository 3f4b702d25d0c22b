// Package platform resolves the capability row that selects between the
// library publishing, deletion, and permission strategies.
package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Profile names a capability row.
type Profile string

const (
	Modern Profile = "modern"
	Scoped Profile = "scoped"
	Legacy Profile = "legacy"
	Auto   Profile = "auto"
)

// Capabilities describes what the host platform supports.
type Capabilities struct {
	Profile Profile
	// BatchDelete means originals are deleted after one confirmation for the
	// whole set instead of item by item.
	BatchDelete bool
	// PendingPublish means library records are inserted pending and finalized
	// after the copy, instead of copied then scanned.
	PendingPublish bool
	// VideoReadPermission is the permission that gates source selection.
	VideoReadPermission string
}

var table = map[Profile]Capabilities{
	Modern: {Profile: Modern, BatchDelete: true, PendingPublish: true, VideoReadPermission: "read-media-video"},
	Scoped: {Profile: Scoped, BatchDelete: true, PendingPublish: true, VideoReadPermission: "read-external-storage"},
	Legacy: {Profile: Legacy, BatchDelete: false, PendingPublish: false, VideoReadPermission: "read-external-storage"},
}

// Resolve returns the capability row for name. Empty and "auto" select the
// modern row.
func Resolve(name string) (Capabilities, error) {
	profile := Profile(strings.ToLower(strings.TrimSpace(name)))
	if profile == "" || profile == Auto {
		profile = Modern
	}
	caps, ok := table[profile]
	if !ok {
		return Capabilities{}, fmt.Errorf("unknown platform profile %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return caps, nil
}

// Names lists the selectable profiles.
func Names() []string {
	names := []string{string(Auto)}
	for profile := range table {
		names = append(names, string(profile))
	}
	sort.Strings(names[1:])
	return names
}
