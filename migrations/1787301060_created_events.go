package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")
		collection.Fields.Add(
			&core.TextField{
				Name:     "name",
				Required: true,
			},
			&core.TextField{
				Name:     "slug",
				Required: true,
			},
			&core.DateField{
				Name: "start_at",
			},
			&core.DateField{
				Name: "end_at",
			},
			&core.NumberField{
				Name:    "min_attendance_minutes",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"draft", "published", "ended"},
				MaxSelect: 1,
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
		collection.AddIndex("idx_events_slug", true, "slug", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
