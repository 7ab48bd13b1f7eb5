package fetch

import (
	"bytes"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/link-oracle/internal/config"
	"github.com/alvmarrod/link-oracle/internal/frontier"
)

// nodeIDKey is the colly request context key carrying the crawl-tree node id.
const nodeIDKey = "node_id"

// VisitEvent is the outcome of one fetch directive, delivered to the
// prioritization core. OK means the transport succeeded and the content is
// textual; Doc is parsed HTML and nil whenever OK is false.
type VisitEvent struct {
	NodeID     int64 // -1 when the response carries no node id
	URL        string
	Host       string
	StatusCode int
	OK         bool
	Doc        *goquery.Document
}

// Handler receives visit events. It must not block for long: fetch workers
// deliver events inline.
type Handler func(ev *VisitEvent)

// Fetcher drives the download pipeline: workers pop directives off the
// frontier queue, fetch them through Colly and hand the outcome to the
// handler.
type Fetcher struct {
	cfg        *config.Config
	queue      *frontier.Queue
	handler    Handler
	collector  *colly.Collector
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
	inFlightMu sync.Mutex
	inFlight   int
}

// NewFetcher creates a fetcher over the given frontier queue.
func NewFetcher(cfg *config.Config, queue *frontier.Queue, handler Handler) *Fetcher {
	f := &Fetcher{
		cfg:      cfg,
		queue:    queue,
		handler:  handler,
		stopChan: make(chan struct{}),
	}

	f.setupColly()
	return f
}

// setupColly configures the Colly collector with callbacks
func (f *Fetcher) setupColly() {
	f.collector = colly.NewCollector(
		colly.Async(true),
		colly.MaxDepth(0), // depth policy is the frontier's job
	)

	f.collector.SetRequestTimeout(time.Duration(f.cfg.RequestTimeoutMs) * time.Millisecond)

	f.collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.ConcurrentWorkers,
		Delay:       0,
	})

	f.collector.OnResponse(func(r *colly.Response) {
		defer f.decrementInFlight()
		f.handler(f.responseEvent(r))
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		defer f.decrementInFlight()

		if r == nil || r.Request == nil {
			logrus.Errorf("OnError called with nil response: %v", err)
			return
		}

		logrus.Debugf("Fetch failed for %s: %v (status: %d)", r.Request.URL, err, r.StatusCode)
		f.handler(&VisitEvent{
			NodeID:     nodeIDFromCtx(r.Ctx),
			URL:        r.Request.URL.String(),
			Host:       strings.ToLower(r.Request.URL.Hostname()),
			StatusCode: r.StatusCode,
			OK:         false,
		})
	})
}

// responseEvent converts a successful transport response into a visit event,
// parsing the body when it is textual.
func (f *Fetcher) responseEvent(r *colly.Response) *VisitEvent {
	ev := &VisitEvent{
		NodeID:     nodeIDFromCtx(r.Ctx),
		URL:        r.Request.URL.String(),
		Host:       strings.ToLower(r.Request.URL.Hostname()),
		StatusCode: r.StatusCode,
	}

	if r.StatusCode != 200 || !isTextual(r.Headers.Get("Content-Type")) {
		return ev
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		logrus.Warnf("Failed to parse body of %s: %v", ev.URL, err)
		return ev
	}

	ev.OK = true
	ev.Doc = doc
	return ev
}

// Start begins the fetch workers
func (f *Fetcher) Start() {
	logrus.Infof("Starting %d fetch workers", f.cfg.ConcurrentWorkers)

	for i := 0; i < f.cfg.ConcurrentWorkers; i++ {
		f.wg.Add(1)
		go f.worker(i + 1)
	}
}

// worker pops frontier directives and schedules visits
func (f *Fetcher) worker(id int) {
	defer f.wg.Done()

	logrus.Debugf("Worker %d started", id)

	for {
		select {
		case <-f.stopChan:
			logrus.Debugf("Worker %d received stop signal", id)
			return
		default:
		}

		directive, ok := f.queue.Pop()
		if !ok {
			logrus.Debugf("Worker %d: frontier stopped, exiting", id)
			return
		}

		logrus.Debugf("Worker %d: popped node %d %s (priority=%.3f)",
			id, directive.NodeID, directive.URL, directive.Priority)

		f.incrementInFlight()
		if err := f.visit(directive.URL, directive.NodeID); err != nil {
			f.decrementInFlight()
			logrus.Warnf("Worker %d: visit failed for %s: %v", id, directive.URL, err)

			host := ""
			if u, parseErr := url.Parse(directive.URL); parseErr == nil {
				host = strings.ToLower(u.Hostname())
			}
			f.handler(&VisitEvent{
				NodeID: directive.NodeID,
				URL:    directive.URL,
				Host:   host,
				OK:     false,
			})
		}
	}
}

// visit schedules an async fetch tagged with the node id.
func (f *Fetcher) visit(targetURL string, nodeID int64) error {
	ctx := colly.NewContext()
	ctx.Put(nodeIDKey, nodeID)
	return f.collector.Request("GET", targetURL, nil, ctx, nil)
}

// Stop gracefully stops the fetcher (safe to call multiple times)
func (f *Fetcher) Stop() {
	f.stopOnce.Do(func() {
		logrus.Info("Stopping fetcher...")

		f.queue.Stop()
		close(f.stopChan)

		workersDone := make(chan struct{})
		go func() {
			f.wg.Wait()
			close(workersDone)
		}()

		select {
		case <-workersDone:
			logrus.Debug("All workers stopped")
		case <-time.After(5 * time.Second):
			logrus.Warn("Workers timeout (5s) - some workers may still be running")
		}

		if f.getInFlight() > 0 {
			logrus.Infof("Waiting for %d in-flight requests (max 10s)...", f.getInFlight())
			collectorDone := make(chan struct{})
			go func() {
				f.collector.Wait()
				close(collectorDone)
			}()

			select {
			case <-collectorDone:
				logrus.Info("All in-flight requests completed")
			case <-time.After(10 * time.Second):
				logrus.Warnf("Timeout waiting for requests - abandoning %d in-flight requests", f.getInFlight())
			}
		}

		logrus.Info("Fetcher stopped")
	})
}

// WaitUntilIdle blocks until the frontier is empty AND no requests are
// in-flight, then stops the fetcher.
func (f *Fetcher) WaitUntilIdle() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logrus.Infof("Frontier status: %d pending, %d in-flight requests", f.queue.Len(), f.getInFlight())
		case <-f.stopChan:
			return
		default:
		}

		time.Sleep(1 * time.Second)

		if f.queue.IsEmpty() && f.getInFlight() == 0 {
			// Double-check after a short delay
			time.Sleep(2 * time.Second)

			if f.queue.IsEmpty() && f.getInFlight() == 0 {
				logrus.Info("Frontier empty with no in-flight requests, initiating natural shutdown")
				f.Stop()
				return
			}
		}
	}
}

// Helper methods for in-flight request tracking
func (f *Fetcher) incrementInFlight() {
	f.inFlightMu.Lock()
	defer f.inFlightMu.Unlock()
	f.inFlight++
}

func (f *Fetcher) decrementInFlight() {
	f.inFlightMu.Lock()
	defer f.inFlightMu.Unlock()
	f.inFlight--
}

func (f *Fetcher) getInFlight() int {
	f.inFlightMu.Lock()
	defer f.inFlightMu.Unlock()
	return f.inFlight
}

// nodeIDFromCtx reads the node id tag off a request context, -1 if absent.
func nodeIDFromCtx(ctx *colly.Context) int64 {
	if ctx == nil {
		return -1
	}
	if id, ok := ctx.GetAny(nodeIDKey).(int64); ok {
		return id
	}
	return -1
}

// isTextual reports whether a Content-Type header denotes text content.
func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml")
}
