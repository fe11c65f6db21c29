package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "t9qr4jzm6yb02ce",
			"name": "lunch_sessions",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "text_date",
					"name": "date",
					"type": "text",
					"required": true,
					"presentable": true,
					"pattern": "^\\d{4}-\\d{2}-\\d{2}$"
				},
				{
					"id": "text_announcement_time",
					"name": "announcement_time",
					"type": "text",
					"required": true,
					"presentable": false,
					"pattern": "^\\d{2}:\\d{2}$"
				},
				{
					"id": "text_start_time",
					"name": "start_time",
					"type": "text",
					"required": true,
					"presentable": false,
					"pattern": "^\\d{2}:\\d{2}$"
				},
				{
					"id": "number_concurrency_limit",
					"name": "concurrency_limit",
					"type": "number",
					"required": true,
					"presentable": false,
					"min": 1,
					"onlyInt": true
				},
				{
					"id": "number_group_size",
					"name": "group_size",
					"type": "number",
					"required": true,
					"presentable": false,
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
						"collecting",
						"active",
						"finished"
					]
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
				"CREATE UNIQUE INDEX idx_lunch_sessions_date_time ON lunch_sessions (date, announcement_time)"
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
		collection, err := app.FindCollectionByNameOrId("t9qr4jzm6yb02ce")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
