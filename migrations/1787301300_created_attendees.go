package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		identities, err := app.FindCollectionByNameOrId("access_identities")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("attendees")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "event",
				Required:      true,
				CollectionId:  events.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.RelationField{
				Name:          "identity",
				Required:      true,
				CollectionId:  identities.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.DateField{
				Name: "registered_at",
			},
			&core.NumberField{
				Name:    "total_seconds",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.BoolField{
				Name: "is_eligible",
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
		collection.AddIndex("idx_attendees_event_identity", true, "event, identity", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("attendees")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
