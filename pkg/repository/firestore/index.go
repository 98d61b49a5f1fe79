package firestore

import "github.com/m-mizutani/fireconf"

// IndexConfig returns the composite indexes the repository queries rely on,
// for collections under prefix.
func IndexConfig(prefix string) *fireconf.Config {
	names := collectionNames{prefix: prefix}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: names.rules(),
				Indexes: []fireconf.Index{
					// List with version and risk code filters
					{
						Fields: []fireconf.IndexField{
							{Path: "version_id", Order: fireconf.OrderAscending},
							{Path: "risk_code", Order: fireconf.OrderAscending},
						},
					},
					// Resolver: active rules of the active version
					{
						Fields: []fireconf.IndexField{
							{Path: "version_id", Order: fireconf.OrderAscending},
							{Path: "is_active", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
