// Package bus is the daemon's Bus Surface: the RMI interface external
// callers use to list targets and jobs, drive updates, and watch signals.
//
// The reference daemon exposes this over D-Bus. No D-Bus library appears
// anywhere in this module's dependency pack, so the surface is
// reimplemented over gRPC instead - object paths and properties carry
// over as plain message fields, and the two D-Bus signals (JobRemoved,
// PropertiesChanged) become one server-streaming WatchEvents RPC. Since
// the daemon and its control client both live in this module and no
// protoc invocation is available, the service layer is hand-written
// against grpc-go's lower-level APIs (ServiceDesc, a custom codec)
// instead of protoc-gen-go-grpc output.
package bus

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets every RPC in this package exchange plain Go structs
// instead of generated proto.Message types. grpc-go negotiates the wire
// codec by content-subtype, so the control client (client.go) requests
// "json" explicitly via grpc.CallContentSubtype; the server takes no
// codec option and answers each call with the registered codec named by
// its content-subtype, rather than the default proto codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "json" }
