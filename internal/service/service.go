package service

import (
	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
)

// Provider boundaries are re-exported from domain for convenience
type (
	HazardProvider   = domain.HazardProvider
	LocationProvider = domain.LocationProvider
	RoutingProvider  = domain.RoutingProvider
	CooldownStore    = domain.CooldownStore
	AlertPublisher   = domain.AlertPublisher
)

func loggerOrDefault(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
