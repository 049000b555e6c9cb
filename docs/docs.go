// Package docs registers the board API description with swag so the
// Swagger UI at /swagger/ can serve it. The document is maintained by hand
// next to the routes in internal/server.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health/live": {"get": {"tags": ["health"], "summary": "Liveness check", "responses": {"200": {"description": "up"}}}},
        "/health/ready": {"get": {"tags": ["health"], "summary": "Readiness check; Redis failures report degraded", "responses": {"200": {"description": "healthy or degraded"}, "503": {"description": "database unreachable"}}}},
        "/board/": {
            "get": {"tags": ["boards"], "summary": "List boards", "responses": {"200": {"description": "boards"}}},
            "post": {"tags": ["boards"], "summary": "Create a board (board managers)", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "board", "required": true, "schema": {"$ref": "#/definitions/BoardForm"}}],
                "responses": {"201": {"description": "created"}, "403": {"description": "not a board manager"}, "422": {"description": "invalid fields", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}
        },
        "/board/{code}/": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
            "get": {"tags": ["posts"], "summary": "List posts, newest first",
                "parameters": [{"in": "query", "name": "q", "type": "string", "description": "case-insensitive substring of title or content, matched verbatim"}, {"in": "query", "name": "page", "type": "string"}],
                "responses": {"200": {"description": "page of posts"}, "404": {"description": "unknown board"}}},
            "put": {"tags": ["boards"], "summary": "Update title and description; the code cannot change", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "board", "required": true, "schema": {"$ref": "#/definitions/BoardForm"}}],
                "responses": {"200": {"description": "updated"}, "403": {"description": "not a board manager"}, "422": {"description": "invalid fields or a changed code"}}},
            "delete": {"tags": ["boards"], "summary": "Delete a board and its posts", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "deleted"}, "403": {"description": "not a board manager"}}}
        },
        "/board/{code}/write/": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
            "post": {"tags": ["posts"], "summary": "Create a post", "security": [{"BearerAuth": []}], "consumes": ["application/json", "multipart/form-data"],
                "responses": {"303": {"description": "redirect to the post"}, "422": {"description": "invalid fields"}, "429": {"description": "rate limited"}}}
        },
        "/board/{code}/{id}": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "id", "type": "integer", "required": true}],
            "get": {"tags": ["posts"], "summary": "Post detail; counts one view per client per local day", "responses": {"200": {"description": "post, comments and flash messages"}, "404": {"description": "not found"}}}
        },
        "/board/{code}/{id}/edit/": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["posts"], "summary": "Edit a post (author only)", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the post, with a flash message when refused"}, "422": {"description": "invalid fields"}}}
        },
        "/board/{code}/{id}/delete/": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["posts"], "summary": "Delete a post with its comments and likes (author only)", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the board, or to the post when refused"}}}
        },
        "/board/{code}/{id}/like/": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["posts"], "summary": "Toggle the caller's like", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "liked and likes_count"}}}
        },
        "/board/{code}/{id}/comment": {
            "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["comments"], "summary": "Add a comment", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the post"}, "422": {"description": "empty comment"}}}
        },
        "/comment/{id}/edit/": {
            "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["comments"], "summary": "Edit a comment (author only)", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the post"}}}
        },
        "/comment/{id}/delete/": {
            "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
            "post": {"tags": ["comments"], "summary": "Delete a comment (author only)", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the post"}}}
        },
        "/accounts/signup/": {"post": {"tags": ["accounts"], "summary": "Create an account and log in", "responses": {"201": {"description": "token and user"}, "422": {"description": "invalid fields"}}}},
        "/accounts/login/": {"post": {"tags": ["accounts"], "summary": "Log in", "responses": {"200": {"description": "token and user"}, "401": {"description": "bad credentials"}}}},
        "/accounts/logout/": {"post": {"tags": ["accounts"], "summary": "Revoke the token and clear the cookie", "responses": {"303": {"description": "redirect to the board directory"}}}},
        "/accounts/profile/": {"get": {"tags": ["accounts"], "summary": "Own profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "profile"}}}},
        "/accounts/profile/edit/": {"post": {"tags": ["accounts"], "summary": "Edit own profile", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the profile"}, "422": {"description": "invalid fields"}}}},
        "/accounts/messages/": {"get": {"tags": ["messages"], "summary": "Received and sent messages with the unread count", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "message box"}}}},
        "/accounts/messages/{id}/": {
            "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
            "get": {"tags": ["messages"], "summary": "Read a message; the receiver's first read stamps read_at", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "message"}, "403": {"description": "neither sender nor receiver"}}}
        },
        "/accounts/messages/send/{receiverId}/": {
            "parameters": [{"in": "path", "name": "receiverId", "type": "integer", "required": true}],
            "post": {"tags": ["messages"], "summary": "Send a message", "security": [{"BearerAuth": []}], "responses": {"303": {"description": "redirect to the message box"}, "404": {"description": "unknown receiver"}, "422": {"description": "invalid fields"}}}
        }
    },
    "definitions": {
        "BoardForm": {"type": "object", "properties": {"code": {"type": "string"}, "title": {"type": "string"}, "description": {"type": "string"}}},
        "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "string"}, "details": {"type": "string"}, "fields": {"type": "object", "additionalProperties": {"type": "string"}}}}
    }
}`

// SwaggerInfo holds the values substituted into the document.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bulletin Board API",
	Description:      "Boards, posts, comments, likes and private messages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
