package model

// Call outcome strings recorded by the telesales team. These are matched
// exactly against the Answer Status and Result columns of the compile history.
const (
	StatusAnswered = "รับสาย" // answered

	ResultInvalidNumber = "เบอร์เสีย"        // dead number
	ResultNotInterested = "ไม่สนใจ"          // not interested
	ResultNotOwner      = "ไม่ใช่เจ้าของไอดี" // not the account owner
)

// UnreachableStatuses are the Answer Status values counted toward the
// unreachable-repeat threshold.
var UnreachableStatuses = map[string]bool{
	"ไม่รับสาย":         true, // no answer
	"ติดต่อไม่ได้":       true, // cannot contact
	"กดตัดสาย":          true, // cut the call
	"รับสายไม่สะดวกคุย": true, // answered but not convenient to talk
}
