package ussd

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/storage"
)

// ErrFarmerNotFound signals that a phone number has no farmer row; the
// caller is a guest.
var ErrFarmerNotFound = errors.New("farmer not found")

// Writes collects the persistence writes requested by a single callback.
// Every non-nil field commits in the same transaction as the session save.
type Writes struct {
	Farmer    *models.Farmer
	Report    *models.FarmerReport
	Transport *models.TransportRequest
}

// Store is the persistence surface the dispatcher needs. Commit applies the
// session save and any requested writes as one atomic unit, so a caller
// never observes a half-applied step.
type Store interface {
	GetOrCreateSession(ctx context.Context, sessionID, phoneNumber string) (*models.USSDSession, error)
	FarmerByPhone(ctx context.Context, phone string) (*models.Farmer, error)
	Commit(ctx context.Context, sess *models.USSDSession, writes *Writes) error
}

type gormStore struct {
	store *storage.Store
}

// NewStore adapts the shared storage layer to the dispatcher's needs.
func NewStore(store *storage.Store) Store {
	return &gormStore{store: store}
}

func (g *gormStore) GetOrCreateSession(ctx context.Context, sessionID, phoneNumber string) (*models.USSDSession, error) {
	return g.store.GetOrCreateSession(ctx, sessionID, phoneNumber)
}

func (g *gormStore) FarmerByPhone(ctx context.Context, phone string) (*models.Farmer, error) {
	farmer, err := g.store.GetFarmerByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFarmerNotFound
	}
	return farmer, err
}

func (g *gormStore) Commit(ctx context.Context, sess *models.USSDSession, writes *Writes) error {
	return g.store.Transaction(ctx, func(tx *gorm.DB) error {
		if writes != nil {
			if writes.Farmer != nil {
				if err := g.store.CreateFarmer(tx, writes.Farmer); err != nil {
					return err
				}
				id := writes.Farmer.ID
				sess.FarmerID = &id
			}
			if writes.Report != nil {
				if err := g.store.CreateReport(tx, writes.Report); err != nil {
					return err
				}
			}
			if writes.Transport != nil {
				if err := g.store.CreateTransportRequest(tx, writes.Transport); err != nil {
					return err
				}
			}
		}
		return g.store.SaveSession(tx, sess)
	})
}
