package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("access_identities")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "user",
				CollectionId:  users.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.TextField{
				Name:     "username",
				Required: true,
			},
			// Cleared on revocation; the row itself stays so old
			// audit entries keep resolving.
			&core.TextField{
				Name: "card_id",
			},
			&core.TextField{
				Name: "card_hash",
			},
			&core.BoolField{
				Name: "is_active",
			},
			&core.DateField{
				Name: "issued_at",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)
		collection.AddIndex("idx_access_identities_username", true, "username", "")
		collection.AddIndex("idx_access_identities_card", false, "card_id", "card_id != ''")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("access_identities")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
