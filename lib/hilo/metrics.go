package hilo

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

type generatorMetrics struct {
	issued    *metrics.Counter
	fetched   *metrics.Counter
	returned  *metrics.Counter
	conflicts *metrics.Counter
}

func newGeneratorMetrics(database, tag string) *generatorMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`ddoc_hilo_%s_total{database=%q,tag=%q}`, metric, database, tag)
	}
	return &generatorMetrics{
		issued:    metrics.GetOrCreateCounter(name("ids_issued")),
		fetched:   metrics.GetOrCreateCounter(name("ranges_fetched")),
		returned:  metrics.GetOrCreateCounter(name("ranges_returned")),
		conflicts: metrics.GetOrCreateCounter(name("conflicts")),
	}
}
