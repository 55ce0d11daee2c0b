package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// GenerateSchema reflects a closed JSON schema for the type behind value,
// for use as a structured output format.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// UnmarshalFlexible decodes model output into out. Besides plain JSON it
// accepts output wrapped in a markdown code fence, JSON encoded as a string
// and JSON that jsonrepair can fix (single quotes, unquoted keys, trailing
// commas, missing closing brackets).
func UnmarshalFlexible(input string, out any) error {
	input = stripCodeFence(strings.TrimSpace(input))

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var inner string
	if err := json.Unmarshal([]byte(input), &inner); err == nil {
		inner = strings.TrimSpace(inner)
		if err := json.Unmarshal([]byte(inner), out); err == nil {
			return nil
		}
		input = inner
	}

	input = dropDoubledBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w (repaired: %s)", err, repaired)
	}
	return nil
}

// stripCodeFence returns the body of a ```json ... ``` block.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// dropDoubledBrace turns "{ {...}" into "{...}", a shape some models emit.
func dropDoubledBrace(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "{"); ok {
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}
