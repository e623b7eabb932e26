package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("facilities")
		collection.Fields.Add(
			&core.TextField{
				Name:     "name",
				Required: true,
			},
			&core.TextField{
				Name:     "slug",
				Required: true,
			},
			&core.NumberField{
				Name:     "capacity",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.BoolField{
				Name: "is_active",
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
		collection.AddIndex("idx_facilities_slug", true, "slug", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("facilities")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
