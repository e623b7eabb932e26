package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		attendees, err := app.FindCollectionByNameOrId("attendees")
		if err != nil {
			return err
		}

		// Deletion cascades through the attendance service, not the
		// schema, so the sessions always go before the attendee row.
		collection := core.NewBaseCollection("attendance_sessions")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "attendee",
				Required:      true,
				CollectionId:  attendees.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.DateField{
				Name:     "entered_at",
				Required: true,
			},
			// Empty while the session is open.
			&core.DateField{
				Name: "exited_at",
			},
			&core.NumberField{
				Name:    "duration_seconds",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
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
		collection.AddIndex("idx_attendance_sessions_attendee", false, "attendee, entered_at", "")
		collection.AddIndex("idx_attendance_sessions_open", false, "attendee", "exited_at = ''")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("attendance_sessions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
