// Package tools implements the fixed tool set exposed to the completion
// service: customer-service availability, user registration, price-list
// lookup, and chat transfer.
package tools

// AvailabilitySchema defines the JSON schema for the availability tool.
const AvailabilitySchema = `{
  "type": "object",
  "properties": {
    "input": {
      "type": "string",
      "description": "Optional free text from the visitor; not needed to determine availability"
    }
  },
  "required": []
}`

// SaveUserSchema defines the JSON schema for the user-registration tool.
const SaveUserSchema = `{
  "type": "object",
  "properties": {
    "name": {
      "type": "string",
      "description": "The visitor's full name",
      "minLength": 1
    },
    "email": {
      "type": "string",
      "description": "The visitor's email address",
      "minLength": 3
    }
  },
  "required": ["name", "email"]
}`

// PriceListSchema defines the JSON schema for the price-lookup tool.
const PriceListSchema = `{
  "type": "object",
  "properties": {
    "name": {
      "type": "string",
      "description": "Name (or partial name) of the procedure or treatment to look up",
      "minLength": 1
    }
  },
  "required": ["name"]
}`

// TransferSchema defines the JSON schema for the chat-transfer tool.
const TransferSchema = `{
  "type": "object",
  "properties": {
    "conversation_id": {
      "type": "string",
      "description": "Identifier of the active conversation to hand over",
      "minLength": 1
    },
    "department_id": {
      "type": "string",
      "description": "Department that should receive the conversation",
      "minLength": 1
    },
    "operator_id": {
      "type": "string",
      "description": "Specific operator to assign, when known"
    }
  },
  "required": ["conversation_id", "department_id"]
}`
