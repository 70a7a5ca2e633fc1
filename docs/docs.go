// Package docs registers the swagger document served at /swagger/.
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
        "/dishes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dishes"],
                "summary": "List dishes",
                "parameters": [
                    {"type": "string", "description": "Only return the dish with this id", "name": "id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.dishListResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dishes"],
                "summary": "Create dish",
                "parameters": [
                    {"description": "Dish", "name": "dish", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.dishRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.dishResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/dishes/{dishId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dishes"],
                "summary": "Get dish",
                "parameters": [
                    {"type": "string", "description": "Dish ID", "name": "dishId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.dishResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dishes"],
                "summary": "Update dish",
                "parameters": [
                    {"type": "string", "description": "Dish ID", "name": "dishId", "in": "path", "required": true},
                    {"description": "Dish", "name": "dish", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.dishRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.dishResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders",
                "parameters": [
                    {"type": "string", "description": "Only return the order with this id", "name": "id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.orderListResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Create order",
                "parameters": [
                    {"description": "Order", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.orderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.orderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/orders/{orderId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.orderResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Update order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true},
                    {"description": "Order", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.orderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.orderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            },
            "delete": {
                "tags": ["orders"],
                "summary": "Delete order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "orderId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.healthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.healthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.dishListResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/dish.Dish"}}}
        },
        "api.dishRequest": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/dish.Dish"}}
        },
        "api.dishResponse": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/dish.Dish"}}
        },
        "api.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "api.healthResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"}
            }
        },
        "api.orderListResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}}
        },
        "api.orderRequest": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/order.Order"}}
        },
        "api.orderResponse": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/order.Order"}}
        },
        "dish.Dish": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "id": {"type": "string"},
                "image_url": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "integer"}
            }
        },
        "order.LineItem": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "id": {"type": "string"},
                "image_url": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "integer"},
                "quantity": {"type": "integer"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "deliverTo": {"type": "string"},
                "dishes": {"type": "array", "items": {"$ref": "#/definitions/order.LineItem"}},
                "id": {"type": "string"},
                "mobileNumber": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "preparing", "out-for-delivery", "delivered"]}
            }
        }
    }
}`

// SwaggerInfo is the registered document metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GrubDash API",
	Description:      "Dishes and delivery orders for the GrubDash storefront",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
