package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		facilities, err := app.FindCollectionByNameOrId("facilities")
		if err != nil {
			return err
		}

		// Denormalized current-state projection, one row per facility,
		// created lazily on the first scan.
		collection := core.NewBaseCollection("occupancy_snapshots")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "facility",
				Required:      true,
				CollectionId:  facilities.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.NumberField{
				Name:    "current",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.JSONField{
				Name: "active_sessions",
			},
			&core.DateField{
				Name: "last_scan_at",
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
		collection.AddIndex("idx_occupancy_snapshots_facility", true, "facility", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("occupancy_snapshots")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
