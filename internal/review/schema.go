package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Draft payloads come from end users, so they are validated against a
// JSON schema before a request is accepted.

const chapterSchema = `{
  "type": "object",
  "required": ["course_id", "title", "content"],
  "properties": {
    "course_id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "content": {"type": "string", "minLength": 1},
    "xp_reward": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

const quizSchema = `{
  "type": "object",
  "required": ["title", "passing_score", "questions"],
  "properties": {
    "course_id": {"type": "string"},
    "chapter_id": {"type": "string"},
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "xp_reward": {"type": "integer", "minimum": 0},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["text", "options", "correct_answer"],
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 2,
            "items": {"type": "string", "minLength": 1}
          },
          "correct_answer": {"type": "integer", "minimum": 0},
          "explanation": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var payloadSchemas = map[RequestType]*gojsonschema.Schema{}

func init() {
	for t, raw := range map[RequestType]string{
		TypeChapter: chapterSchema,
		TypeQuiz:    quizSchema,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid %s payload schema: %v", t, err))
		}
		payloadSchemas[t] = schema
	}
}

// validatePayload checks a draft payload against the schema for its type.
// Schema errors come back as one ErrValidation with all failures joined.
func validatePayload(t RequestType, payload json.RawMessage) error {
	schema, ok := payloadSchemas[t]
	if !ok {
		return apperr.Validation("unknown request type %q", t)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return apperr.Validation("payload is not valid JSON: %v", err)
	}
	if result.Valid() {
		return validateAnswerBounds(t, payload)
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return apperr.Validation("invalid %s payload: %s", t, strings.Join(msgs, "; "))
}

// validateAnswerBounds enforces what JSON schema cannot: each correct
// answer index must point at an existing option.
func validateAnswerBounds(t RequestType, payload json.RawMessage) error {
	if t != TypeQuiz {
		return nil
	}
	var p QuizPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return apperr.Validation("decode quiz payload: %v", err)
	}
	for i, q := range p.Questions {
		if q.CorrectAnswer >= len(q.Options) {
			return apperr.Validation("question %d: correct answer %d out of range for %d options",
				i+1, q.CorrectAnswer, len(q.Options))
		}
	}
	return nil
}
