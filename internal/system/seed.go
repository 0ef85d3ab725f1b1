package system

import "github.com/nexus-share/nexus-ledger/internal/registry"

// seedCommunity fills the community registry with the demo resources every
// fresh system starts with. They belong to the empty community identity, so
// no user can mutate or remove them.
func seedCommunity(reg *registry.Registry) {
	demos := []registry.Resource{
		{
			Name:        "Ubuntu 24.04 LTS Desktop ISO",
			SizeGB:      5.8,
			Uploader:    "community",
			Seeds:       120,
			Peers:       34,
			Description: "Official Ubuntu desktop image, long-term support release",
			Category:    "software",
			FileHash:    "a3f1c2d4e5b60718",
			Active:      true,
		},
		{
			Name:        "Project Gutenberg Audiobook Pack",
			SizeGB:      2.4,
			Uploader:    "community",
			Seeds:       45,
			Peers:       12,
			Description: "Public domain audiobooks, narrated collection volume 1",
			Category:    "audio",
			FileHash:    "9b8c7d6e5f401223",
			Active:      true,
		},
		{
			Name:        "OpenStreetMap Planet Extract",
			SizeGB:      1.1,
			Uploader:    "community",
			Seeds:       18,
			Peers:       6,
			Description: "Regional OSM extract in PBF format, updated weekly",
			Category:    "data",
			FileHash:    "47d2b91e0cfa8356",
			Active:      true,
		},
	}
	for _, d := range demos {
		reg.Add(d)
	}
}
