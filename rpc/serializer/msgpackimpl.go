package serializer

import (
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using MessagePack
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using msgpack encoding.
// Struct fields are read from the msgpack tag and fall back to the field name.
type msgpackSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

func (m msgpackSerializerImpl) ContentType() string {
	return ContentTypeMsgpack
}
