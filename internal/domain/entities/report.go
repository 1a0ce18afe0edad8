package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RiskLevel 语音内容风险等级（STT检测器输出）
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// STTScript 语音转写与关键词取证内容，整体以JSONB存储
type STTScript struct {
	Keywords   []string `json:"keywords"`
	RiskReason string   `json:"riskReason"`
	Transcript string   `json:"transcript"`
}

// Value 实现driver.Valuer，序列化为JSON写入数据库
func (s STTScript) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan 实现sql.Scanner，从JSONB列还原
func (s *STTScript) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = STTScript{}
		return nil
	default:
		return fmt.Errorf("无法将%T扫描为STTScript", src)
	}
}

// FastReport 快速模式报告：频域检测 + 生理信号检测 + 语音取证
type FastReport struct {
	ID           int64     `json:"id" db:"fast_id"`
	UserID       uuid.UUID `json:"userId" db:"user_id"`
	ResultID     uuid.UUID `json:"resultId" db:"result_id"`
	FreqResult   Verdict   `json:"freqResult" db:"freq_result"`
	FreqConf     float64   `json:"freqConf" db:"freq_conf"`
	FreqImage    string    `json:"freqImage" db:"freq_image"`
	RppgResult   Verdict   `json:"rppgResult" db:"rppg_result"`
	RppgConf     float64   `json:"rppgConf" db:"rppg_conf"`
	RppgImage    string    `json:"rppgImage" db:"rppg_image"`
	STTRiskLevel RiskLevel `json:"sttRiskLevel" db:"stt_risk_level"`
	STTScript    STTScript `json:"sttScript" db:"stt_script"`
}

// DeepReport 深度模式报告：单个高精度检测器
type DeepReport struct {
	ID          int64     `json:"id" db:"deep_id"`
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	ResultID    uuid.UUID `json:"resultId" db:"result_id"`
	UniteResult Verdict   `json:"uniteResult" db:"unite_result"`
	UniteConf   float64   `json:"uniteConf" db:"unite_conf"`
	UniteImage  string    `json:"uniteImage" db:"unite_image"`
}
