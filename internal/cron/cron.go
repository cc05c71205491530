package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger is satisfied by service.InvitationService.
type Purger interface {
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	timeout   time.Duration
	logger    logrus.FieldLogger
}

// NewScheduler keeps expired invitations for retention before purging them.
func NewScheduler(purger Purger, retention, timeout time.Duration, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		purger:    purger,
		retention: retention,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	// Run every hour - Purge expired invitations
	if _, err := s.cron.AddFunc("0 * * * *", s.purgeExpiredInvitations); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) purgeExpiredInvitations() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx, s.retention)
	if err != nil {
		s.logger.WithError(err).Error("failed to purge expired invitations")
		return
	}
	if n > 0 {
		s.logger.WithField("purged", n).Info("purged expired invitations")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}
