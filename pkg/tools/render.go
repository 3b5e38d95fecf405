package tools

import (
	"encoding/json"

	"github.com/inercia/statesqa/pkg/lookup"
)

// notAvailable is sent to the model for missing data. Failure details stay local.
const notAvailable = `{"status":"not_found","message":"no data available"}`

// Render produces the tool-message content for a lookup result
func Render(res lookup.Result) string {
	if res.IsNotFound() {
		return notAvailable
	}
	out, err := json.Marshal(res.Record)
	if err != nil {
		return notAvailable
	}
	return string(out)
}
