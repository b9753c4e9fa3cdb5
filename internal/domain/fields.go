package domain

import (
	"fmt"
	"strconv"
	"time"

	"plansly/backend/internal/apperrors"
)

// FieldType tags the expected value type for an updatable field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldBool
	FieldFloat
	FieldTime
)

// FieldSchema is a per-entity allow-list: only the listed keys are
// applied on update, after coercion to the tagged type. Values that
// fail coercion are rejected, not silently dropped.
type FieldSchema map[string]FieldType

// PlanFields lists the caller-updatable plan fields.
var PlanFields = FieldSchema{
	"name":        FieldString,
	"description": FieldString,
	"location":    FieldString,
	"theme":       FieldString,
	"type":        FieldString,
	"deadline":    FieldTime,
	"start_date":  FieldTime,
	"end_date":    FieldTime,
	"is_public":   FieldBool,
}

// ActivityFields lists the caller-updatable activity fields.
var ActivityFields = FieldSchema{
	"name":        FieldString,
	"description": FieldString,
	"link":        FieldString,
	"cost":        FieldFloat,
	"start_time":  FieldTime,
	"end_time":    FieldTime,
	"country":     FieldString,
	"state":       FieldString,
	"city":        FieldString,
}

// UserFields lists the caller-updatable user preference fields.
var UserFields = FieldSchema{
	"name":          FieldString,
	"light_theme":   FieldBool,
	"notifications": FieldBool,
	"currency":      FieldString,
}

// Normalize filters input down to allow-listed keys and coerces each
// value to its tagged type. Keys outside the schema are ignored. Every
// value that cannot be coerced is collected and reported in a single
// validation error.
func (s FieldSchema) Normalize(input map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(input))
	var rejected []string

	for key, typ := range s {
		raw, ok := input[key]
		if !ok || raw == nil {
			continue
		}
		value, err := coerce(raw, typ)
		if err != nil {
			rejected = append(rejected, key)
			continue
		}
		out[key] = value
	}

	if len(rejected) > 0 {
		return nil, apperrors.Validation("invalid field values", map[string]interface{}{"fields": rejected})
	}
	return out, nil
}

func coerce(raw interface{}, typ FieldType) (interface{}, error) {
	switch typ {
	case FieldString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case FieldBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		}
	case FieldFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case FieldTime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			return time.Parse(time.RFC3339, v)
		}
	}
	return nil, fmt.Errorf("cannot coerce %T", raw)
}

// ApplyFields merges already-normalized plan fields. The type field is
// additionally checked against the known plan types.
func (p *Plan) ApplyFields(fields map[string]interface{}) error {
	if raw, ok := fields["type"]; ok {
		t := PlanType(raw.(string))
		if t != PlanTrip && t != PlanEvent && t != PlanGroupPurchase {
			return apperrors.Validation("unknown plan type", map[string]interface{}{"fields": []string{"type"}})
		}
		p.Type = t
	}
	if v, ok := fields["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := fields["description"]; ok {
		p.Description = v.(string)
	}
	if v, ok := fields["location"]; ok {
		p.Location = v.(string)
	}
	if v, ok := fields["theme"]; ok {
		p.Theme = v.(string)
	}
	if v, ok := fields["is_public"]; ok {
		p.IsPublic = v.(bool)
	}
	if v, ok := fields["deadline"]; ok {
		t := v.(time.Time)
		p.Deadline = &t
	}
	if v, ok := fields["start_date"]; ok {
		t := v.(time.Time)
		p.StartDate = &t
	}
	if v, ok := fields["end_date"]; ok {
		t := v.(time.Time)
		p.EndDate = &t
	}
	return nil
}

// ApplyFields merges already-normalized activity fields. A cost change
// replaces the basis value and re-derives the dependent field.
func (a *Activity) ApplyFields(fields map[string]interface{}) error {
	if v, ok := fields["name"]; ok {
		a.Name = v.(string)
	}
	if v, ok := fields["description"]; ok {
		a.Description = v.(string)
	}
	if v, ok := fields["link"]; ok {
		a.Link = v.(string)
	}
	if v, ok := fields["country"]; ok {
		a.Country = v.(string)
	}
	if v, ok := fields["state"]; ok {
		a.State = v.(string)
	}
	if v, ok := fields["city"]; ok {
		a.City = v.(string)
	}
	if v, ok := fields["start_time"]; ok {
		a.StartTime = v.(time.Time)
	}
	if v, ok := fields["end_time"]; ok {
		a.EndTime = v.(time.Time)
	}
	if v, ok := fields["cost"]; ok {
		cost := v.(float64)
		if a.Costs.IsPerPerson {
			a.Costs.PerPerson = cost
		} else {
			a.Costs.TotalCost = cost
		}
		a.Costs.Recalculate(len(a.VoteIDs))
	}
	return nil
}

// ApplyFields merges already-normalized user preference fields.
func (u *User) ApplyFields(fields map[string]interface{}) error {
	if v, ok := fields["name"]; ok {
		u.Name = v.(string)
	}
	if v, ok := fields["light_theme"]; ok {
		u.LightTheme = v.(bool)
	}
	if v, ok := fields["notifications"]; ok {
		u.Notifications = v.(bool)
	}
	if v, ok := fields["currency"]; ok {
		u.Currency = v.(string)
	}
	return nil
}
