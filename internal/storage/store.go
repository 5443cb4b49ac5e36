package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Karagwa/ChapFarm/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store wraps the gorm connection with the queries the service needs.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for transactional work.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Sessions

// GetOrCreateSession returns the session row for sessionID, creating it if
// absent. Creation relies on the unique index on session_id so two
// concurrent callbacks for a fresh id cannot both insert.
func (s *Store) GetOrCreateSession(ctx context.Context, sessionID, phoneNumber string) (*models.USSDSession, error) {
	now := time.Now()
	sess := &models.USSDSession{
		SessionID:    sessionID,
		PhoneNumber:  phoneNumber,
		CurrentState: "INITIAL",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(sess).Error
	if err != nil {
		return nil, err
	}

	// Re-select so the loser of a concurrent insert sees the winner's row.
	out := &models.USSDSession{}
	err = s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(out).Error
	if err != nil {
		return nil, translate(err)
	}

	return out, nil
}

// SaveSession persists the mutated session inside the caller's transaction.
func (s *Store) SaveSession(tx *gorm.DB, sess *models.USSDSession) error {
	sess.UpdatedAt = time.Now()
	return tx.Save(sess).Error
}

// Farmers

func (s *Store) GetFarmerByPhone(ctx context.Context, phone string) (*models.Farmer, error) {
	farmer := &models.Farmer{}
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(farmer).Error
	if err != nil {
		return nil, translate(err)
	}
	return farmer, nil
}

func (s *Store) GetFarmer(ctx context.Context, id uint) (*models.Farmer, error) {
	farmer := &models.Farmer{}
	err := s.db.WithContext(ctx).First(farmer, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return farmer, nil
}

func (s *Store) CreateFarmer(tx *gorm.DB, farmer *models.Farmer) error {
	if farmer.RegisteredAt.IsZero() {
		farmer.RegisteredAt = time.Now()
	}
	return tx.Create(farmer).Error
}

func (s *Store) ListFarmers(ctx context.Context, offset, limit int) ([]*models.Farmer, error) {
	var farmers []*models.Farmer
	err := s.db.WithContext(ctx).Offset(offset).Limit(limit).Find(&farmers).Error
	return farmers, err
}

func (s *Store) DeleteFarmer(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Farmer{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FarmerPhones returns phone numbers of farmers in the region, or of all
// farmers when region is "All".
func (s *Store) FarmerPhones(ctx context.Context, region string) ([]string, error) {
	var phones []string
	q := s.db.WithContext(ctx).Model(&models.Farmer{})
	if region != "All" {
		q = q.Where("region = ?", region)
	}
	err := q.Pluck("phone", &phones).Error
	return phones, err
}

// Reports

func (s *Store) CreateReport(tx *gorm.DB, report *models.FarmerReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	return tx.Create(report).Error
}

func (s *Store) ListReports(ctx context.Context) ([]*models.FarmerReport, error) {
	var reports []*models.FarmerReport
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&reports).Error
	return reports, err
}

// Transport

func (s *Store) CreateTransportRequest(tx *gorm.DB, req *models.TransportRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	return tx.Create(req).Error
}

func (s *Store) ListTransportRequests(ctx context.Context) ([]*models.TransportRequest, error) {
	var reqs []*models.TransportRequest
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (s *Store) UpdateTransportStatus(ctx context.Context, id uint, status string) (*models.TransportRequest, error) {
	req := &models.TransportRequest{}
	err := s.db.WithContext(ctx).First(req, id).Error
	if err != nil {
		return nil, translate(err)
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	err = s.db.WithContext(ctx).Save(req).Error
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Advice

func (s *Store) ListAdvice(ctx context.Context) ([]*models.Advice, error) {
	var advice []*models.Advice
	err := s.db.WithContext(ctx).Find(&advice).Error
	return advice, err
}

func (s *Store) CreateAdvice(ctx context.Context, advice *models.Advice) error {
	if advice.CreatedAt.IsZero() {
		advice.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(advice).Error
}

// Weather alerts

func (s *Store) SaveWeatherAlerts(ctx context.Context, alerts []*models.WeatherAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(alerts).Error
}

func (s *Store) ListWeatherAlerts(ctx context.Context) ([]*models.WeatherAlert, error) {
	var alerts []*models.WeatherAlert
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// Agriculture alerts

func (s *Store) CreateAgricultureAlert(ctx context.Context, alert *models.AgricultureAlert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(alert).Error
}

// Users

func (s *Store) CreateUser(tx *gorm.DB, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	return tx.Create(user).Error
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.WithContext(ctx).Where("username = ?", username).First(user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.WithContext(ctx).Where("email = ?", email).First(user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user := &models.User{}
	err := s.db.WithContext(ctx).First(user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	user := &models.User{}
	err := s.db.WithContext(ctx).Where("reset_token = ?", token).First(user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).Find(&users).Error
	return users, err
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *Store) CreateTransportProvider(tx *gorm.DB, tp *models.TransportProvider) error {
	if tp.CreatedAt.IsZero() {
		tp.CreatedAt = time.Now()
	}
	return tx.Create(tp).Error
}

func (s *Store) CreateAgricultureAuthority(tx *gorm.DB, aa *models.AgricultureAuthority) error {
	if aa.CreatedAt.IsZero() {
		aa.CreatedAt = time.Now()
	}
	return tx.Create(aa).Error
}
