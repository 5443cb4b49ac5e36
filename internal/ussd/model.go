package ussd

import (
	"time"
)

const defaultSessionLogsTable = "ussd_logs"

// SessionLog is one audit row per USSD callback, kept for traceback.
type SessionLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SessionID   string    `gorm:"index;type:varchar(100);not null"`
	PhoneNumber string    `gorm:"index;type:varchar(15);not null"`
	State       string    `gorm:"index;type:varchar(50);not null"`
	Text        string    `gorm:"type:varchar(500);"`
	UserInput   string    `gorm:"type:varchar(100);"`
	Response    string    `gorm:"type:varchar(500);"`
	Succeeded   bool      `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (*SessionLog) TableName() string {
	return defaultSessionLogsTable
}
