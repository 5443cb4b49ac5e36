package models

import (
	"time"
)

// User roles for the REST surface.
const (
	RoleAdmin                = "admin"
	RoleFarmer               = "farmer"
	RoleTransportProvider    = "transport_provider"
	RoleAgricultureAuthority = "agriculture_authority"
)

// User is a dashboard account (admins, transport providers, authorities).
// Farmers interacting over USSD have no User row.
type User struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	Username         string    `gorm:"index;type:varchar(50);not null;unique"`
	Email            string    `gorm:"index;type:varchar(100);not null;unique"`
	Password         string    `gorm:"type:varchar(100);not null"`
	Role             string    `gorm:"index;type:varchar(30);not null"`
	ResetToken       string    `gorm:"type:varchar(100)"`
	ResetTokenExpiry time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

func (*User) TableName() string {
	return "users"
}

// Farmer is created exactly once per phone number, either by the USSD
// registration flow or by an admin.
type Farmer struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"index;type:varchar(100);not null"`
	Phone        string    `gorm:"uniqueIndex;type:varchar(15);not null"`
	Location     string    `gorm:"index;type:varchar(100)"`
	Region       string    `gorm:"index;type:varchar(100)"`
	RegisteredAt time.Time `gorm:"not null"`
}

func (*Farmer) TableName() string {
	return "farmers"
}

// FarmerReport statuses.
const (
	StatusPending   = "Pending"
	StatusResolved  = "Resolved"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

type FarmerReport struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	FarmerID    uint      `gorm:"index;not null"`
	IssueType   string    `gorm:"index;type:varchar(50);not null"`
	Description string    `gorm:"type:varchar(500)"`
	Location    string    `gorm:"type:varchar(100)"`
	Status      string    `gorm:"index;type:varchar(20);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (*FarmerReport) TableName() string {
	return "farmer_reports"
}

type TransportRequest struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	FarmerID        uint      `gorm:"index;not null"`
	TransportType   string    `gorm:"type:varchar(30);not null"`
	PickupLocation  string    `gorm:"type:varchar(100);not null"`
	DropoffLocation string    `gorm:"type:varchar(100);not null"`
	Status          string    `gorm:"index;type:varchar(20);not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time
}

func (*TransportRequest) TableName() string {
	return "transport_requests"
}

// USSDSession is one in-progress USSD dialog. One row per gateway session id.
// Scratch holds the serialized in-flight flow data; the ussd package owns its
// schema and is the only writer.
type USSDSession struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	SessionID    string    `gorm:"uniqueIndex;type:varchar(100);not null"`
	PhoneNumber  string    `gorm:"index;type:varchar(15);not null"`
	CurrentState string    `gorm:"type:varchar(50);not null"`
	FarmerID     *uint     `gorm:"index"`
	Scratch      []byte    `gorm:"type:json"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (*USSDSession) TableName() string {
	return "ussd_sessions"
}

// Advice is a cached (query, response) pair from the advice service.
type Advice struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	QueryText    string    `gorm:"index;type:varchar(300);not null"`
	ResponseText string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (*Advice) TableName() string {
	return "advice"
}

type WeatherAlert struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	Location      string    `gorm:"index;type:varchar(100);not null"`
	AlertType     string    `gorm:"type:varchar(50)"`
	AlertMessage  string    `gorm:"type:varchar(500)"`
	Severity      string    `gorm:"type:varchar(20)"`
	UrgencyLevel  string    `gorm:"type:varchar(20)"`
	EffectiveTime time.Time
	ExpiresTime   time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (*WeatherAlert) TableName() string {
	return "weather_alerts"
}

// AgricultureAlert is an advisory pushed by an agriculture authority.
type AgricultureAlert struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	AuthorityID uint      `gorm:"index"`
	AlertType   string    `gorm:"type:varchar(50);not null"`
	Description string    `gorm:"type:varchar(500)"`
	Severity    string    `gorm:"type:varchar(20)"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (*AgricultureAlert) TableName() string {
	return "agriculture_alerts"
}

type TransportProvider struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	UserID      uint      `gorm:"index;not null"`
	CompanyName string    `gorm:"type:varchar(100);not null"`
	Phone       string    `gorm:"type:varchar(15)"`
	Region      string    `gorm:"type:varchar(100)"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (*TransportProvider) TableName() string {
	return "transport_providers"
}

type AgricultureAuthority struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     uint      `gorm:"index;not null"`
	AgencyName string    `gorm:"type:varchar(100);not null"`
	Region     string    `gorm:"type:varchar(100)"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (*AgricultureAuthority) TableName() string {
	return "agriculture_authorities"
}
