// Package webui 提供实时日志、运行结果和指标的HTTP接口
package webui

import (
	"UberInsight/src/pipeline"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// LogSource storage.Logger 满足该接口
type LogSource interface {
	Subscribe() <-chan string
	Unsubscribe(ch <-chan string)
}

// Server 保存最近一次运行结果，并对外提供查询
type Server struct {
	logs    LogSource
	metrics http.Handler

	mu   sync.RWMutex
	last *ReportView
	err  string
}

func NewServer(logs LogSource, metrics http.Handler) *Server {
	return &Server{logs: logs, metrics: metrics}
}

// Observe 记录一次运行结果，失败时保留上次成功的结果
func (s *Server) Observe(r *pipeline.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err.Error()
		return
	}
	s.err = ""
	s.last = NewReportView(r)
}

// Router 路由: /healthz /logs /report /metrics
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Get("/report", s.handleReport)
	r.Get("/logs", s.handleLogs)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe 在ctx结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last, lastErr := s.last, s.err
	s.mu.RUnlock()

	if last == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "no successful run yet", "last_error": lastErr})
		return
	}
	render.JSON(w, r, struct {
		*ReportView
		LastError string `json:"last_error,omitempty"`
	}{last, lastErr})
}

// handleLogs 分块推送日志，直到客户端断开
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		http.Error(w, "log stream disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	ch := s.logs.Subscribe()
	defer s.logs.Unsubscribe(ch)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case msg := <-ch:
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// ReportView Report的JSON形式
type ReportView struct {
	RunID       string              `json:"run_id"`
	Input       string              `json:"input"`
	Started     time.Time           `json:"started"`
	DurationMS  int64               `json:"duration_ms"`
	Loaded      int                 `json:"loaded"`
	Unparseable int                 `json:"unparseable"`
	Dropped     map[string]int      `json:"dropped"`
	Rows        int                 `json:"rows"`
	Monthly     map[string]float64  `json:"monthly_pickups"`
	DayParts    map[string]float64  `json:"day_part_percent"`
	Weekdays    map[string]int      `json:"weekday_rides"`
	Correlation map[string]*float64 `json:"rainfall_correlation"`
	Outputs     []string            `json:"outputs"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func NewReportView(r *pipeline.Report) *ReportView {
	v := &ReportView{
		RunID:       r.RunID,
		Input:       r.Input,
		Started:     r.Started,
		DurationMS:  r.Duration.Milliseconds(),
		Loaded:      r.Loaded,
		Unparseable: r.Unparseable,
		Dropped: map[string]int{
			"missing":    r.Clean.DroppedMissing,
			"duplicates": r.Clean.DroppedDuplicates,
		},
		Rows:        r.Summary.Rows,
		Monthly:     make(map[string]float64),
		DayParts:    make(map[string]float64),
		Weekdays:    make(map[string]int),
		Correlation: make(map[string]*float64),
		Outputs:     r.Attachments(),
	}
	for _, m := range r.Summary.Monthly {
		v.Monthly[m.Label] = m.Pickups
	}
	for _, p := range r.Summary.DayParts {
		v.DayParts[p.Label] = p.Percent
	}
	for _, d := range r.Summary.Weekdays {
		v.Weekdays[d.Label] = d.Count
	}
	// NaN无法编码为JSON，输出null
	for _, rs := range r.Summary.Rainfall {
		if math.IsNaN(rs.Correlation) {
			v.Correlation[rs.Column] = nil
			continue
		}
		c := rs.Correlation
		v.Correlation[rs.Column] = &c
	}
	if r.Warnings != nil {
		for _, err := range r.Warnings.Errors {
			v.Warnings = append(v.Warnings, err.Error())
		}
	}
	return v
}
