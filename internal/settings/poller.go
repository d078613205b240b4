package settings

import (
	"context"
	"time"

	"github.com/priointimate/PrioBusiness/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPollInterval = 30 * time.Second

// Poller reloads the snapshot when another instance has written newer settings.
type Poller struct {
	db       *gorm.DB
	interval time.Duration
}

// NewPoller returns nil when db is nil.
func NewPoller(db *gorm.DB, interval time.Duration) *Poller {
	if db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{db: db, interval: interval}
}

// Start launches the poll loop in a background goroutine.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go p.run(ctx)
	log.Infof("settings poller started (interval=%s)", p.interval)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("settings poller: refresh failed")
			}
		}
	}
}

// pollOnce refreshes when the newest stored row is later than the snapshot.
func (p *Poller) pollOnce(ctx context.Context) (bool, error) {
	var rows []models.Setting
	if errFind := p.db.WithContext(ctx).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Find(&rows).Error; errFind != nil {
		return false, errFind
	}
	if len(rows) == 0 || !rows[0].UpdatedAt.After(UpdatedAt()) {
		return false, nil
	}
	if errRefresh := Refresh(ctx, p.db); errRefresh != nil {
		return false, errRefresh
	}
	return true, nil
}
