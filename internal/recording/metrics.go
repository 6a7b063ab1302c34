package recording

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordingsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_recordings_started_total",
		Help: "Recording sessions that reached the active state.",
	})
	recordingsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_recordings_finished_total",
		Help: "Recording sessions finalized to disk.",
	})
	framesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camcorder_frames_routed_total",
		Help: "Frames forwarded to encoders while active.",
	}, []string{"type"})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_frames_dropped_total",
		Help: "Frames arriving outside the active state.",
	})
	photosTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camcorder_photos_total",
		Help: "Still photos captured from the live frame.",
	})
)
