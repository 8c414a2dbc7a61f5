// Package docs holds the swagger document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/functions/send-task-reminder": {
            "post": {
                "description": "Emails every active, un-reminded DEADLINE task due within the next hour and marks it reminded.",
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "Send deadline reminder emails",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reminders.DispatchSummary"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/sessions/reminders": {
            "get": {
                "description": "Websocket. Emits sound, notification, toast and request_permission events.",
                "tags": ["Reminders"],
                "summary": "Live due-time alerts",
                "parameters": [
                    {"type": "string", "description": "current browser permission: default, granted or denied", "name": "permission", "in": "query"},
                    {"type": "string", "description": "JWT when the Authorization header cannot be set", "name": "access_token", "in": "query"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "List the caller's tasks",
                "parameters": [
                    {"type": "string", "description": "DAILY or DEADLINE", "name": "type", "in": "query"},
                    {"type": "boolean", "description": "filter by is_active", "name": "active", "in": "query"},
                    {"type": "boolean", "description": "filter by is_completed", "name": "completed", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Task"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Create a task",
                "parameters": [
                    {"description": "DAILY needs time_of_day, DEADLINE needs deadline", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.createTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Task"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tasks/agenda.pdf": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["Tasks"],
                "summary": "Printable agenda of active tasks",
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "parameters": [{"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Task"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Moving a deadline makes the task eligible for a new reminder email.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Edit a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true},
                    {"description": "fields to change", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.updateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Task"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "parameters": [{"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tasks/{id}/complete": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Toggle completion",
                "parameters": [{"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Task"}}}
            }
        }
    },
    "definitions": {
        "handlers.createTaskRequest": {
            "type": "object",
            "required": ["title", "type"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["DAILY", "DEADLINE"]},
                "priority": {"type": "string", "enum": ["urgent", "normal", "low"]},
                "time_of_day": {"type": "string"},
                "deadline": {"type": "string"}
            }
        },
        "handlers.updateTaskRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["DAILY", "DEADLINE"]},
                "priority": {"type": "string", "enum": ["urgent", "normal", "low"]},
                "is_active": {"type": "boolean"},
                "time_of_day": {"type": "string"},
                "deadline": {"type": "string"}
            }
        },
        "models.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["DAILY", "DEADLINE"]},
                "is_completed": {"type": "boolean"},
                "completed_at": {"type": "string"},
                "priority": {"type": "string", "enum": ["urgent", "normal", "low"]},
                "is_active": {"type": "boolean"},
                "time_of_day": {"type": "string"},
                "deadline": {"type": "string"},
                "reminded_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "reminders.DispatchResult": {
            "type": "object",
            "properties": {
                "taskId": {"type": "string"},
                "email": {"type": "string"},
                "success": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "reminders.DispatchSummary": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/reminders.DispatchResult"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Habit Vault API",
	Description:      "Tasks and reminders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
