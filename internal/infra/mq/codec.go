package mq

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Codec 消息体编码
type Codec struct {
	Encoding string
}

func NewCodec(encoding string) (Codec, error) {
	switch encoding {
	case "", EncodingJSON:
		return Codec{Encoding: EncodingJSON}, nil
	case EncodingCBOR:
		return Codec{Encoding: EncodingCBOR}, nil
	default:
		return Codec{}, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// Marshal 编码消息体
func (c Codec) Marshal(v interface{}) ([]byte, error) {
	if c.Encoding == EncodingCBOR {
		return cbor.Marshal(v)
	}
	return json.Marshal(v)
}

// ContentType 返回 MIME 类型
func (c Codec) ContentType() string {
	if c.Encoding == EncodingCBOR {
		return "application/cbor"
	}
	return "application/json"
}
