package client

import (
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/sirupsen/logrus"
)

// Observer is told about every state transition and every protocol
// violation the client detects. Panics raised by an Observer are recovered
// and logged.
type Observer interface {
	StateChanged(from, to models.UserState)
	ProtocolViolation(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStateChanged      func(from, to models.UserState)
	OnProtocolViolation func(err error)
}

func (o ObserverFuncs) StateChanged(from, to models.UserState) {
	if o.OnStateChanged != nil {
		o.OnStateChanged(from, to)
	}
}

func (o ObserverFuncs) ProtocolViolation(err error) {
	if o.OnProtocolViolation != nil {
		o.OnProtocolViolation(err)
	}
}

func safeNotify(log logrus.FieldLogger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("observer panicked: %v", r)
		}
	}()
	fn()
}
