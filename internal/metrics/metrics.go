package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 奖励结果标签
const (
	AwardGranted   = "granted"
	AwardDuplicate = "duplicate"
)

// Metrics 龙宠模拟相关指标
type Metrics struct {
	registry *prometheus.Registry

	actions    *prometheus.CounterVec
	awards     *prometheus.CounterVec
	gifts      *prometheus.CounterVec
	evolutions *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New 创建指标集合，使用独立的Registry
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dragon"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "龙宠操作次数",
		}, []string{"action"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_awards_total",
			Help:      "活动奖励结算次数",
		}, []string{"activity_type", "result"}),
		gifts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gifts_total",
			Help:      "礼物赠送次数",
		}, []string{"item_id"}),
		evolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolutions_total",
			Help:      "进化次数",
		}, []string{"stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "操作失败次数",
		}, []string{"action", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "龙宠操作耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.actions, m.awards, m.gifts, m.evolutions, m.errors, m.latency,
	)
	return m
}

// Registry 底层Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 暴露指标的HTTP Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveAction 记录一次操作及其耗时
func (m *Metrics) ObserveAction(action string, start time.Time) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
	m.latency.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// RecordAward 记录活动奖励结算
func (m *Metrics) RecordAward(activityType string, duplicate bool) {
	if m == nil {
		return
	}
	result := AwardGranted
	if duplicate {
		result = AwardDuplicate
	}
	m.awards.WithLabelValues(activityType, result).Inc()
}

// RecordGift 记录礼物
func (m *Metrics) RecordGift(itemID string) {
	if m == nil {
		return
	}
	m.gifts.WithLabelValues(itemID).Inc()
}

// RecordEvolution 记录进化到新阶段
func (m *Metrics) RecordEvolution(stage string) {
	if m == nil {
		return
	}
	m.evolutions.WithLabelValues(stage).Inc()
}

// RecordError 记录失败
func (m *Metrics) RecordError(action string, code int) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(action, strconv.Itoa(code)).Inc()
}
