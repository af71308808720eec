package lists

import "encoding/json"

// Serializer converts request and response bodies to and from the wire format.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default Serializer. HubSpot's v1 contact-list API
// speaks plain JSON with the field names declared on the DTOs.
type JSONSerializer struct{}

// Marshal implements Serializer.
func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Serializer.
func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
