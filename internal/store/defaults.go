package store

// Defaults seeded into a fresh session so the workbench is usable before the
// user has configured anything.

const DefaultSystemPrompt = `You are a precise data extraction assistant. Your task is to extract structured information from documents according to the provided JSON schema.
Always return valid JSON that matches the schema exactly.
If information for a field is not available in the document, use null for that field, unless the schema specifies otherwise (e.g., a default value or if the field is not nullable).
Focus solely on extracting data as per the schema. Do not add any conversational fluff or explanations outside of the JSON output.`

const DefaultUserTaskTemplate = `Based on the provided document content and the JSON schema, please extract the relevant information.

Document Content will be provided by the system.
JSON Schema will be provided by the system.

Your task is to meticulously analyze the document and populate the fields defined in the JSON schema.
Return ONLY the valid JSON output that conforms to the schema.`

const DefaultSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ExtractedData",
  "description": "Schema for data to be extracted from a document.",
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "description": "The title or heading of the document"
    },
    "date": {
      "type": ["string", "null"],
      "format": "date",
      "description": "The main date mentioned in the document (YYYY-MM-DD format if possible)"
    },
    "summary": {
      "type": "string",
      "description": "A brief summary of the document content"
    },
    "keywords": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "A list of keywords from the document"
    }
  },
  "required": ["title", "summary"]
}`
