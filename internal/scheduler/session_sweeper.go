package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/beanline/storefront/pkg/logger"
)

// Sweeper is anything that can drop sessions idle for longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// SessionSweeper periodically retires idle cart sessions
type SessionSweeper struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	idleTTL  time.Duration
}

// NewSessionSweeper schedules sweeper on a cron spec such as "@every 5m"
func NewSessionSweeper(sweeper Sweeper, schedule string, idleTTL time.Duration) *SessionSweeper {
	return &SessionSweeper{
		cron:     cron.New(),
		sweeper:  sweeper,
		schedule: schedule,
		idleTTL:  idleTTL,
	}
}

func (s *SessionSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		logger.Error("Failed to add cron job for session sweep", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Session sweeper started", map[string]interface{}{
		"schedule": s.schedule,
		"idle_ttl": s.idleTTL.String(),
	})
	return nil
}

// RunOnce sweeps immediately
func (s *SessionSweeper) RunOnce() {
	closed := s.sweeper.Sweep(s.idleTTL)
	if closed > 0 {
		logger.Info("Idle cart sessions closed", map[string]interface{}{
			"closed": closed,
		})
	}
}

// Stop waits for a running sweep to finish
func (s *SessionSweeper) Stop() {
	logger.Info("Stopping session sweeper...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Session sweeper stopped", nil)
}
