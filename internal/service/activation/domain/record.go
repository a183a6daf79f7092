// activation-service/internal/domain/record.go
package domain

import "time"

// IssuanceRecord 记录一个激活码的签发信息。创建后不可变。
type IssuanceRecord struct {
	CreatedAt time.Time `json:"createdAt"`
	Index     int       `json:"index"`
}

// UsageRecord 记录一个激活码的激活信息。正常情况下每个码至多一条；
// 同一设备重复激活是幂等的，不会改写这条记录。
type UsageRecord struct {
	ActivatedAt time.Time `json:"activatedAt"`
	DeviceID    string    `json:"deviceId"`
	IP          string    `json:"ip,omitempty"`
}

// Snapshot 是激活码存储的完整状态，作为一个整体读写。
// 一个码的状态由两个 map 推导：
//
//	不在 Codes       → 未知码
//	在 Codes 不在 UsedCodes → 已签发未使用
//	在 UsedCodes     → 已激活
type Snapshot struct {
	Codes     map[string]IssuanceRecord `json:"codes"`
	UsedCodes map[string]UsageRecord    `json:"usedCodes"`
}

// NewSnapshot 返回一个空快照。
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Codes:     make(map[string]IssuanceRecord),
		UsedCodes: make(map[string]UsageRecord),
	}
}

// EnsureMaps 补齐 nil map。存储层反序列化出的未初始化快照经此修复后可直接使用。
func (s *Snapshot) EnsureMaps() {
	if s.Codes == nil {
		s.Codes = make(map[string]IssuanceRecord)
	}
	if s.UsedCodes == nil {
		s.UsedCodes = make(map[string]UsageRecord)
	}
}

// Clone 深拷贝快照，存储实现用它避免调用方共享内部状态。
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Codes:     make(map[string]IssuanceRecord, len(s.Codes)),
		UsedCodes: make(map[string]UsageRecord, len(s.UsedCodes)),
	}
	for k, v := range s.Codes {
		clone.Codes[k] = v
	}
	for k, v := range s.UsedCodes {
		clone.UsedCodes[k] = v
	}
	return clone
}
