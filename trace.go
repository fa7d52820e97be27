package overlay

import "encoding/json"

// Trace captures which stage of the read pipeline produced a value.
type Trace struct {
	Type   Type   `json:"type"`
	Name   string `json:"name"`
	Tenant int64  `json:"tenant,omitempty"`
	Source Source `json:"source"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

func (t Trace) with(source Source, value any) Trace {
	t.Source = source
	t.Value = value
	t.Found = true
	return t
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
