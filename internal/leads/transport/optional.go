package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OptionalUUID distinguishes an absent key from an explicit clear in a
// partial update. For a lead's category:
//
//	key missing            -> Set=false, category kept
//	null or ""             -> Set=true, Value=nil, category removed
//	"<uuid>"               -> Set=true, Value=&id, category replaced
type OptionalUUID struct {
	Value *uuid.UUID
	Set   bool
}

// Clears reports whether the update removes the reference.
func (o OptionalUUID) Clears() bool {
	return o.Set && o.Value == nil
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("category must be a string id or null")
	}
	if raw == "" {
		return nil
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid category id %q", raw)
	}
	o.Value = &parsed
	return nil
}

// Present records that a key appeared in the body, whatever its value.
type Present struct {
	Set bool
}

func (p *Present) UnmarshalJSON([]byte) error {
	p.Set = true
	return nil
}
