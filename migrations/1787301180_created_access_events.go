package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		identities, err := app.FindCollectionByNameOrId("access_identities")
		if err != nil {
			return err
		}

		// Append-only scan log. Rows are created by the scan services
		// and never updated or deleted.
		collection := core.NewBaseCollection("access_events")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "identity",
				CollectionId:  identities.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.TextField{
				Name: "card_hash",
			},
			&core.SelectField{
				Name:      "target_type",
				Required:  true,
				Values:    []string{"facility", "event"},
				MaxSelect: 1,
			},
			&core.TextField{
				Name:     "target_id",
				Required: true,
			},
			&core.SelectField{
				Name:      "action",
				Required:  true,
				Values:    []string{"enter", "exit", "denied"},
				MaxSelect: 1,
			},
			&core.BoolField{
				Name: "success",
			},
			&core.TextField{
				Name: "reason",
			},
			&core.TextField{
				Name: "session_id",
			},
			&core.NumberField{
				Name:    "duration_seconds",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.DateField{
				Name:     "scanned_at",
				Required: true,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)
		collection.AddIndex("idx_access_events_target", false, "target_type, target_id, scanned_at", "")
		collection.AddIndex("idx_access_events_identity", false, "identity, scanned_at", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("access_events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
