package service

import "github.com/prometheus/client_golang/prometheus"

var (
	bidsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_bids_submitted_total", Help: "Bids placed by sellers",
	})
	bidsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_bids_accepted_total", Help: "Bids accepted by buyers",
	})
	projectsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_projects_created_total", Help: "Projects posted by buyers",
	})
	projectsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_projects_completed_total", Help: "Projects moved to COMPLETED",
	})
	deliverablesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_deliverables_uploaded_total", Help: "Deliverable files stored",
	})
	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexbid_notifications_total", Help: "Notification emails by template and result",
	}, []string{"template", "result"})
	uploadsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexbid_uploads_swept_total", Help: "Orphaned upload files removed by the sweeper",
	})
)

func init() {
	prometheus.MustRegister(bidsSubmitted, bidsAccepted, projectsCreated, projectsCompleted,
		deliverablesUploaded, notifications, uploadsSwept)
}
