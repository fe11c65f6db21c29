package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "w5fn8kxs1dj73hp",
			"name": "lunch_queue",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "relation_session",
					"name": "session",
					"type": "relation",
					"required": true,
					"presentable": false,
					"collectionId": "t9qr4jzm6yb02ce",
					"cascadeDelete": false,
					"maxSelect": 1
				},
				{
					"id": "relation_participant",
					"name": "participant",
					"type": "relation",
					"required": true,
					"presentable": false,
					"collectionId": "k2vp7dhq3nx81wa",
					"cascadeDelete": false,
					"maxSelect": 1
				},
				{
					"id": "number_position",
					"name": "position",
					"type": "number",
					"required": true,
					"presentable": true,
					"min": 1,
					"onlyInt": true
				},
				{
					"id": "select_status",
					"name": "status",
					"type": "select",
					"required": true,
					"presentable": false,
					"maxSelect": 1,
					"values": [
						"waiting",
						"notified",
						"ready",
						"at_lunch",
						"finished"
					]
				},
				{
					"id": "text_batch_id",
					"name": "batch_id",
					"type": "text",
					"required": false,
					"presentable": false
				},
				{
					"id": "date_notified_at",
					"name": "notified_at",
					"type": "date",
					"required": false,
					"presentable": false
				},
				{
					"id": "date_start_prompted_at",
					"name": "start_prompted_at",
					"type": "date",
					"required": false,
					"presentable": false
				},
				{
					"id": "date_lunch_started_at",
					"name": "lunch_started_at",
					"type": "date",
					"required": false,
					"presentable": false
				},
				{
					"id": "date_lunch_finished_at",
					"name": "lunch_finished_at",
					"type": "date",
					"required": false,
					"presentable": false
				},
				{
					"id": "date_reminder_sent_at",
					"name": "reminder_sent_at",
					"type": "date",
					"required": false,
					"presentable": false
				},
				{
					"id": "autodate_created",
					"name": "created",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": false
				},
				{
					"id": "autodate_updated",
					"name": "updated",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": true
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX idx_lunch_queue_session_participant ON lunch_queue (session, participant)",
				"CREATE INDEX idx_lunch_queue_session_status ON lunch_queue (session, status)"
			],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("w5fn8kxs1dj73hp")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
