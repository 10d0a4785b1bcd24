package metrics

import (
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// Source exposes the workspace state the collector samples
type Source interface {
	Workspace() *types.Workspace
	PendingOperations() int
}

// Collector periodically samples the local workspace tree into gauges
type Collector struct {
	source   Source
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source Source, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect samples the source once
func (c *Collector) Collect() {
	ws := c.source.Workspace()

	pages := 0
	tabCounts := make(map[types.Kind]int)
	for _, project := range ws.Projects {
		pages += len(project.Pages)
		for _, page := range project.Pages {
			for _, tab := range page.Tabs {
				tabCounts[tab.Kind]++
			}
		}
	}

	ProjectsTotal.Set(float64(len(ws.Projects)))
	PagesTotal.Set(float64(pages))

	TabsTotal.Reset()
	for kind, count := range tabCounts {
		TabsTotal.WithLabelValues(string(kind)).Set(float64(count))
	}

	PendingOperations.Set(float64(c.source.PendingOperations()))
}
