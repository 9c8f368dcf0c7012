package upstream

import (
	"encoding/json"
	"fmt"
)

// UnwrapList extracts a JSON array from body, which the upstream delivers
// either bare or nested under one of the given envelope keys. The first key
// holding an array wins.
func UnwrapList(body []byte, keys ...string) ([]json.RawMessage, error) {
	var bare []json.RawMessage
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("upstream: payload is neither array nor object: %w", err)
	}

	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}

	return nil, fmt.Errorf("upstream: no list found under keys %v", keys)
}

// DecodeList unwraps an enveloped array and decodes every element into T.
func DecodeList[T any](body []byte, keys ...string) ([]T, error) {
	raws, err := UnwrapList(body, keys...)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raws))
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("upstream: decode list item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
