package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/veridate/veridate/internal/types"
)

// metadataSchemas describes the metadata payload each notification type must carry.
var metadataSchemas = map[types.NotificationType]string{
	types.NotificationLineManagerAdded: `{
		"type": "object",
		"required": ["profileUserId", "experienceId", "company"],
		"properties": {
			"profileUserId": {"type": "string", "pattern": "^[0-9a-fA-F]{24}$"},
			"experienceId":  {"type": "string", "pattern": "^[0-9a-fA-F]{24}$"},
			"company":       {"type": "string", "minLength": 1}
		}
	}`,
	types.NotificationCreditsGranted: `{
		"type": "object",
		"required": ["category", "institute", "amount"],
		"properties": {
			"category":  {"type": "string", "enum": ["education", "experience"]},
			"institute": {"type": "string", "minLength": 1},
			"amount":    {"type": "integer", "minimum": 1}
		}
	}`,
}

var (
	compileOnce sync.Once
	compiled    map[types.NotificationType]*gojsonschema.Schema
	compileErr  error
)

func schemaFor(t types.NotificationType) (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[types.NotificationType]*gojsonschema.Schema, len(metadataSchemas))
		for nt, src := range metadataSchemas {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = fmt.Errorf("failed to compile metadata schema for %s: %w", nt, err)
				return
			}
			compiled[nt] = s
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[t]
	if !ok {
		return nil, fmt.Errorf("unknown notification type: %s", t)
	}
	return s, nil
}

// ValidateMetadata checks metadata against the schema registered for t.
func ValidateMetadata(t types.NotificationType, metadata map[string]any) error {
	schema, err := schemaFor(t)
	if err != nil {
		return err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(metadata))
	if err != nil {
		return fmt.Errorf("failed to validate metadata: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return &types.ErrValidation{Field: "metadata", Message: strings.Join(msgs, "; ")}
}
