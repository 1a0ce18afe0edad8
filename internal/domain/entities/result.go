package entities

import (
	"time"

	"github.com/google/uuid"
)

// Verdict 检测结论
type Verdict string

const (
	// VerdictReal 判定为真实视频
	VerdictReal Verdict = "REAL"
	// VerdictFake 判定为深度伪造
	VerdictFake Verdict = "FAKE"
	// VerdictUnknown 各检测器置信度打平时无法判定
	VerdictUnknown Verdict = "UNKNOWN"
)

// Result 一次完整分析的结论。
// result_id独立于video_id，可单独对外分享。
type Result struct {
	ID          uuid.UUID `json:"resultId" db:"result_id"`
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	VideoID     uuid.UUID `json:"videoId" db:"video_id"`
	TotalResult Verdict   `json:"totalResult" db:"total_result"`
	IsFast      bool      `json:"isFast" db:"is_fast"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NewResult 创建分析结果
func NewResult(userID, videoID uuid.UUID, total Verdict, isFast bool) *Result {
	return &Result{
		ID:          uuid.New(),
		UserID:      userID,
		VideoID:     videoID,
		TotalResult: total,
		IsFast:      isFast,
		CreatedAt:   time.Now(),
	}
}
