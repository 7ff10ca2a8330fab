package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	Add(name string, delta int)
	// RegisterMetric registers a value that moves both ways.
	RegisterMetric(name string)
	// RegisterCounter registers a value that only grows.
	RegisterCounter(name string)
}

// StatsUpdater serializes metric updates through a single goroutine and
// exposes them both as expvar JSON and as Prometheus gauges and counters.
type StatsUpdater struct {
	vars       *expvar.Map
	gauges     *prometheus.GaugeVec
	counters   *prometheus.CounterVec
	registry   *prometheus.Registry
	updateChan chan *metricsUpdateReq

	namesMu      sync.RWMutex
	counterNames map[string]struct{}

	// stopMu is held for reading while an update is queued
	stopMu  sync.RWMutex
	stopped bool
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a new stats updater instance and mounts its
// handlers on mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan:   make(chan *metricsUpdateReq, 512),
		vars:         new(expvar.Map).Init(),
		registry:     prometheus.NewRegistry(),
		counterNames: make(map[string]struct{}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "docroom",
			Name:      "gauge",
			Help:      "Current room service levels.",
		}, []string{"metric"}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docroom",
			Name:      "events_total",
			Help:      "Cumulative room service events.",
		}, []string{"metric"}),
	}
	su.registry.MustRegister(su.gauges, su.counters)

	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	mux.Handle("GET /metrics", promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{}))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
}

func (su *StatsUpdater) isCounter(name string) bool {
	su.namesMu.RLock()
	defer su.namesMu.RUnlock()
	_, ok := su.counterNames[name]
	return ok
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric := su.vars.Get(req.name)
		if metric == nil {
			panic("metric not found: " + req.name)
		}

		if su.isCounter(req.name) {
			// counters never go down
			if req.value <= 0 {
				continue
			}
			su.counters.WithLabelValues(req.name).Add(float64(req.value))
		} else {
			su.gauges.WithLabelValues(req.name).Add(float64(req.value))
		}
		metric.(*expvar.Int).Add(int64(req.value))
	}
}

// send queues an update. Updates arriving after Stop are discarded.
func (su *StatsUpdater) send(req *metricsUpdateReq) {
	su.stopMu.RLock()
	defer su.stopMu.RUnlock()

	if su.stopped {
		return
	}
	su.updateChan <- req
}

func (su *StatsUpdater) Incr(name string) {
	su.send(&metricsUpdateReq{name: name, value: 1})
}

func (su *StatsUpdater) Decr(name string) {
	su.send(&metricsUpdateReq{name: name, value: -1})
}

func (su *StatsUpdater) Add(name string, delta int) {
	su.send(&metricsUpdateReq{name: name, value: delta})
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
	su.gauges.WithLabelValues(name).Set(0)
}

func (su *StatsUpdater) RegisterCounter(name string) {
	su.namesMu.Lock()
	su.counterNames[name] = struct{}{}
	su.namesMu.Unlock()

	su.vars.Set(name, new(expvar.Int))
	su.counters.WithLabelValues(name).Add(0)
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop closes the update queue. It is safe to call more than once and to
// race with late updates from sessions or the sweeper.
func (su *StatsUpdater) Stop() {
	su.stopMu.Lock()
	defer su.stopMu.Unlock()

	if su.stopped {
		return
	}
	su.stopped = true
	close(su.updateChan)
}
