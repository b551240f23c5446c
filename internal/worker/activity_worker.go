package worker

import (
	"github.com/spec-kit/incident-service/internal/service"
)

// StartActivityWorker registers activity feed handlers.
func StartActivityWorker(activityService *service.ActivityService) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers()
}
