// Package protocol is the message codec shared by switchwatch-server and its
// consumers.
//
// Every frame on the websocket is one JSON Envelope:
//
//	{
//	  "type":      "port_update",
//	  "timestamp": "2024-05-01T12:00:00.000000001Z",
//	  "data":      { /* schema selected by type */ }
//	}
//
// Server → client types: initial_data, port_update, port_status,
// switch_ports, error. Client → server types: get_port_status,
// get_switch_ports. Envelopes never reference earlier messages, so any frame
// can be decoded on its own.
//
// Encode validates the payload against its type and returns *EncodingError
// on a schema violation. Decode returns *DecodingError for malformed JSON,
// unknown types, or requests missing required fields.
package protocol
