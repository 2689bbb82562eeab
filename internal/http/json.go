package httpapi

import "encoding/json"

func ginHToJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
