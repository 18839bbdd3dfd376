package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/bot"
	"github.com/spec-kit/relay-desk/internal/worker"
)

// shutdown stops intake first and tears down handler dependencies last, so
// updates already queued still run with a live context and whatever they
// publish is still delivered.
type shutdown struct {
	stopPolling   context.CancelFunc
	pollDone      <-chan struct{}
	stopHTTP      func() error
	serializer    *bot.Serializer
	stopHandlers  context.CancelFunc
	notifications *worker.NotificationWorker
	logger        *zap.Logger
}

func (s shutdown) run() {
	if s.stopPolling != nil {
		s.stopPolling()
	}
	if s.pollDone != nil {
		<-s.pollDone
	}
	if s.stopHTTP != nil {
		if err := s.stopHTTP(); err != nil && s.logger != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}

	// No more submits can arrive once polling has returned.
	s.serializer.Wait()

	s.stopHandlers()
	if s.notifications != nil {
		<-s.notifications.Done()
	}
}
