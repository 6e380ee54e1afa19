package aggregation

import (
	"context"
	"fmt"
)

// interest is the set of rows a request may emit. Each restriction is
// independent and a nil restriction admits everything.
type interest struct {
	groups   map[GroupKey]struct{}
	entities map[string]struct{}

	// formCode, when set, limits rows to (entity, form) pairs found among the
	// fetched rows for that form.
	formCode string
	forms    map[GroupKey]struct{}
}

func (in interest) resolveForms(rows []decodedRow) interest {
	if in.formCode == "" {
		return in
	}
	in.forms = make(map[GroupKey]struct{})
	for _, r := range rows {
		if r.formCode == in.formCode {
			in.forms[EntityFormKey(r.entityID, r.formCode)] = struct{}{}
		}
	}
	return in
}

func (in interest) admits(r decodedRow) bool {
	if in.groups != nil {
		if _, ok := in.groups[r.group]; !ok {
			return false
		}
	}
	if in.entities != nil {
		if _, ok := in.entities[r.entityID]; !ok {
			return false
		}
	}
	if in.formCode != "" {
		if _, ok := in.forms[EntityFormKey(r.entityID, r.formCode)]; !ok {
			return false
		}
	}
	return true
}

// locatedEntity is one by_location row value.
type locatedEntity struct {
	ID        string
	ShortCode string
}

// entitiesAt lists the entities of entityType located at or under location.
func (e *Engine) entitiesAt(ctx context.Context, entityType string, location []string) ([]locatedEntity, error) {
	start := Key{entityType}
	for _, l := range location {
		start = append(start, l)
	}
	rows, err := e.source.LoadAllRowsInView(ctx, e.layout.ByLocationView, ViewQuery{
		StartKey: start,
		EndKey:   start.Append(MaxKey),
	})
	if err != nil {
		return nil, err
	}

	out := make([]locatedEntity, 0, len(rows))
	for _, row := range rows {
		m, ok := row.Value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s value is %T", ErrMalformedKey, e.layout.ByLocationView, row.Value)
		}
		id, _ := m["id"].(string)
		shortCode, _ := m["short_code"].(string)
		out = append(out, locatedEntity{ID: id, ShortCode: shortCode})
	}
	return out, nil
}

// locationInterest builds the restriction for a location filter on axis.
// Path axes keep exactly the filtered path; entity axes keep the entities
// found under it.
func (e *Engine) locationInterest(ctx context.Context, entityType string, axis Axis, filter *LocationFilter) (interest, error) {
	if filter == nil {
		return interest{}, nil
	}
	if _, _, ok := pathAxis(axis); ok {
		return interest{groups: map[GroupKey]struct{}{PathKey(filter.Location...): {}}}, nil
	}

	located, err := e.entitiesAt(ctx, entityType, filter.Location)
	if err != nil {
		return interest{}, err
	}
	ids := make(map[string]struct{}, len(located))
	for _, l := range located {
		ids[l.ID] = struct{}{}
	}
	return interest{entities: ids}, nil
}

// shortCodesAt is locationInterest for views keyed by short code.
func (e *Engine) shortCodesAt(ctx context.Context, entityType string, filter *LocationFilter) (interest, error) {
	if filter == nil {
		return interest{}, nil
	}
	located, err := e.entitiesAt(ctx, entityType, filter.Location)
	if err != nil {
		return interest{}, err
	}
	codes := make(map[string]struct{}, len(located))
	for _, l := range located {
		codes[l.ShortCode] = struct{}{}
	}
	return interest{entities: codes}, nil
}
