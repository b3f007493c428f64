package repository

import (
	"testing"
)

func TestCollectionIndexesUniqueKeys(t *testing.T) {
	want := map[string]string{
		usersCollection:         "unique_email",
		visitorsCollection:      "unique_fingerprint_day",
		helpCollection:          "unique_slug",
		helpViewsCollection:     "unique_article_viewer_day",
		agentsCollection:        "unique_agent_user",
		reviewsCollection:       "unique_user_target",
		subscriptionsCollection: "unique_email_topic",
	}

	indexes := collectionIndexes()
	for coll, name := range want {
		found := false
		for _, m := range indexes[coll] {
			if m.Options == nil || m.Options.Name == nil || *m.Options.Name != name {
				continue
			}
			found = true
			if m.Options.Unique == nil || !*m.Options.Unique {
				t.Errorf("%s.%s is not unique", coll, name)
			}
		}
		if !found {
			t.Errorf("missing index %s on %s", name, coll)
		}
	}
}
