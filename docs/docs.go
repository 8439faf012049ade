// Package docs registers the OpenAPI description served at /swagger/*.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["Authentication"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/auth/logout": {"post": {"security": [{"BearerAuth": []}], "tags": ["Authentication"], "summary": "Revoke the current token", "responses": {"200": {"description": "OK"}}}},
        "/routes": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Routes"], "summary": "Plan an optimized route", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}, "409": {"description": "Superseded by a newer request"}, "422": {"description": "Nothing could be routed"}, "502": {"description": "Routing service unavailable"}, "504": {"description": "Routing service timed out"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Routes"], "summary": "Clear the current route", "responses": {"204": {"description": "Cleared"}}}
        },
        "/routes/current": {"get": {"security": [{"BearerAuth": []}], "tags": ["Routes"], "summary": "Get the current route", "responses": {"200": {"description": "OK"}, "404": {"description": "No route"}}}},
        "/geocode/reverse": {"post": {"security": [{"BearerAuth": []}], "tags": ["Routes"], "summary": "Name a map position", "responses": {"200": {"description": "OK"}, "422": {"description": "No place at this position"}}}},
        "/map/prospects": {"post": {"security": [{"BearerAuth": []}], "tags": ["Map"], "summary": "Place prospect markers", "responses": {"200": {"description": "OK"}}}},
        "/map/clusters": {"get": {"security": [{"BearerAuth": []}], "tags": ["Map"], "summary": "Clustered markers", "parameters": [{"type": "number", "default": 10, "name": "zoom", "in": "query"}], "responses": {"200": {"description": "GeoJSON FeatureCollection"}}}},
        "/map/prospects/{id}/popup": {"get": {"security": [{"BearerAuth": []}], "tags": ["Map"], "summary": "Marker popup", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Marker not placed"}}}},
        "/map/scene": {"get": {"security": [{"BearerAuth": []}], "tags": ["Map"], "summary": "Full map scene", "responses": {"200": {"description": "OK"}}}},
        "/prospects/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Prospects"], "summary": "Get a prospect", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Prospect not found"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Prospects"], "summary": "Change a prospect's status or priority", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown status or priority, or neither given"}, "404": {"description": "Prospect not found"}}}
        },
        "/prospects/{id}/activity": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Activity"], "summary": "Prospect activity log", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Prospect not found"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Activity"], "summary": "Add an activity entry", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Concurrent edits, retry"}}}
        },
        "/prospects/{id}/activity/attachments": {"post": {"security": [{"BearerAuth": []}], "consumes": ["multipart/form-data"], "tags": ["Activity"], "summary": "Attach a file", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"201": {"description": "Created"}, "502": {"description": "Upload failed"}}}},
        "/prospects/{id}/activity/{entry_id}/likes": {"put": {"security": [{"BearerAuth": []}], "tags": ["Activity"], "summary": "Set an entry's like count", "responses": {"200": {"description": "OK"}, "404": {"description": "Entry not found"}}}},
        "/prospects/{id}/activity/{entry_id}/replies": {"post": {"security": [{"BearerAuth": []}], "tags": ["Activity"], "summary": "Reply to an entry", "responses": {"201": {"description": "Created"}}}},
        "/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["Notifications"], "summary": "Fetch notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/unread-count": {"get": {"security": [{"BearerAuth": []}], "tags": ["Notifications"], "summary": "Unread notification count", "responses": {"200": {"description": "OK"}}}},
        "/notifications/stream": {"get": {"security": [{"BearerAuth": []}], "produces": ["text/event-stream"], "tags": ["Notifications"], "summary": "Notification stream", "responses": {"200": {"description": "Event stream"}}}},
        "/territories": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Territories"], "summary": "List territories", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Territories"], "summary": "Create a territory", "responses": {"201": {"description": "Created"}, "409": {"description": "Name already used"}}}
        },
        "/territories/{id}/active": {"patch": {"security": [{"BearerAuth": []}], "tags": ["Territories"], "summary": "Activate or deactivate a territory", "responses": {"200": {"description": "OK"}, "404": {"description": "Territory not found"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ProspectRoute API",
	Description:      "Route planning, map markers, activity logs and team notifications for sales prospecting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
