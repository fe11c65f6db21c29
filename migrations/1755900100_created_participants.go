package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "k2vp7dhq3nx81wa",
			"name": "participants",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "text_external_id",
					"name": "external_id",
					"type": "text",
					"required": true,
					"presentable": true
				},
				{
					"id": "text_first_name",
					"name": "first_name",
					"type": "text",
					"required": false,
					"presentable": false
				},
				{
					"id": "text_last_name",
					"name": "last_name",
					"type": "text",
					"required": false,
					"presentable": false
				},
				{
					"id": "text_username",
					"name": "username",
					"type": "text",
					"required": false,
					"presentable": false
				},
				{
					"id": "select_role",
					"name": "role",
					"type": "select",
					"required": true,
					"presentable": false,
					"maxSelect": 1,
					"values": [
						"member",
						"supervisor"
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
				"CREATE UNIQUE INDEX idx_participants_external_id ON participants (external_id)"
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
		collection, err := app.FindCollectionByNameOrId("k2vp7dhq3nx81wa")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
