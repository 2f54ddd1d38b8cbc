package analytics

// Flags gate the estimators. The master Enabled switch short-circuits all of
// them; each estimator additionally has its own toggle. A gated-off
// estimator reports "unavailable" rather than running.
type Flags struct {
	Enabled    bool `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	Trend      bool `yaml:"trend" envconfig:"TREND" default:"true"`
	Category   bool `yaml:"category" envconfig:"CATEGORY" default:"true"`
	Forecast   bool `yaml:"forecast" envconfig:"FORECAST" default:"true"`
	Anomaly    bool `yaml:"anomaly" envconfig:"ANOMALY" default:"true"`
	Clustering bool `yaml:"clustering" envconfig:"CLUSTERING" default:"true"`
}

// DefaultFlags enables everything.
func DefaultFlags() Flags {
	return Flags{Enabled: true, Trend: true, Category: true, Forecast: true, Anomaly: true, Clustering: true}
}

// Engine wraps the estimator functions with the toggle flags and the
// clustering centroids. All methods are pure and safe for concurrent use.
type Engine struct {
	flags     Flags
	centroids []Centroid
}

// NewEngine creates an analytics engine. Nil centroids fall back to the
// hand-set defaults.
func NewEngine(flags Flags, centroids []Centroid) *Engine {
	if centroids == nil {
		centroids = DefaultCentroids()
	}
	return &Engine{flags: flags, centroids: centroids}
}

// PredictTrend runs the linear-regression estimator over history (oldest
// first). The second return is false when the estimator is gated off or the
// history has fewer than two valid points.
func (e *Engine) PredictTrend(history []float64) (float64, bool) {
	if !e.flags.Enabled || !e.flags.Trend {
		return 0, false
	}
	return PredictNext(history)
}

// Forecast runs the exponential-smoothing estimator over history.
func (e *Engine) Forecast(history []float64) (float64, bool) {
	if !e.flags.Enabled || !e.flags.Forecast {
		return 0, false
	}
	return Smooth(history)
}

// DetectAnomaly reports (anomalous, available) for value against history.
func (e *Engine) DetectAnomaly(history []float64, value float64) (bool, bool) {
	if !e.flags.Enabled || !e.flags.Anomaly {
		return false, false
	}
	return IsAnomalous(history, value), true
}

// Categorize labels payment progress for the given employment figure.
func (e *Engine) Categorize(history []float64, employment float64) (string, bool) {
	if !e.flags.Enabled || !e.flags.Category {
		return "", false
	}
	return Categorize(history, employment), true
}

// Clusters partitions the given points among the configured centroids.
func (e *Engine) Clusters(points []Point) (map[int][]string, bool) {
	if !e.flags.Enabled || !e.flags.Clustering {
		return nil, false
	}
	return AssignClusters(points, e.centroids), true
}

// Flags returns the toggle flags the engine was built with.
func (e *Engine) Flags() Flags {
	return e.flags
}

// Centroids exposes the configured reference centroids.
func (e *Engine) Centroids() []Centroid {
	out := make([]Centroid, len(e.centroids))
	copy(out, e.centroids)
	return out
}
