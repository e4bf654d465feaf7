package governor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rlgov"

// Metrics exports the per-core state of the controllers. A nil
// *Metrics records nothing.
type Metrics struct {
	ticks     *prometheus.CounterVec
	epsilon   *prometheus.GaugeVec
	reward    *prometheus.GaugeVec
	target    *prometheus.GaugeVec
	replay    *prometheus.GaugeVec
	refreshes *prometheus.CounterVec
	nonFinite *prometheus.CounterVec
}

// NewMetrics creates the controller metrics and registers them with
// reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Counter of controller ticks broken out by core and outcome.",
		}, []string{"core", "outcome"}),
		epsilon: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "epsilon",
			Help:      "Current exploration rate of each core.",
		}, []string{"core"}),
		reward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reward",
			Help:      "Most recent reward of each core.",
		}, []string{"core"}),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_frequency_khz",
			Help:      "Most recent target frequency of each core in kHz.",
		}, []string{"core"}),
		replay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replay_occupancy",
			Help:      "Number of transitions in the replay buffer of each core.",
		}, []string{"core"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_refresh_total",
			Help:      "Counter of target network refreshes of each core.",
		}, []string{"core"}),
		nonFinite: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nonfinite_rewards_total",
			Help:      "Counter of non-finite rewards replaced by zero on each core.",
		}, []string{"core"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.ticks, m.epsilon, m.reward, m.target,
		m.replay, m.refreshes, m.nonFinite}
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	core := strconv.Itoa(r.Core)
	m.ticks.WithLabelValues(core, string(r.Outcome)).Inc()
	m.epsilon.WithLabelValues(core).Set(r.Epsilon)
	m.target.WithLabelValues(core).Set(float64(r.Target))
	if r.Learned {
		m.reward.WithLabelValues(core).Set(r.Reward)
	}
}

func (m *Metrics) setReplay(core, n int) {
	if m == nil {
		return
	}
	m.replay.WithLabelValues(strconv.Itoa(core)).Set(float64(n))
}

func (m *Metrics) refreshed(core int) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(strconv.Itoa(core)).Inc()
}

func (m *Metrics) nonFiniteReward(core int) {
	if m == nil {
		return
	}
	m.nonFinite.WithLabelValues(strconv.Itoa(core)).Inc()
}
