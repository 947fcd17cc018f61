package usecase

import (
	"time"

	"github.com/google/uuid"
)

// 消息类型
const (
	TypeBMSReport = "BMS_REPORT"
	TypeBMSStats  = "BMS_STATS"
)

// MQPayload 消息信封，带类型、电池包标识与唯一 ID
type MQPayload struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Pack      string      `json:"pack"`
	Timestamp time.Time   `json:"ts"`
	Data      interface{} `json:"data"`
}

// NewMQPayload 生成带随机 UUID 的信封
func NewMQPayload(typ, pack string, data interface{}) MQPayload {
	return MQPayload{
		ID:        uuid.NewString(),
		Type:      typ,
		Pack:      pack,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
