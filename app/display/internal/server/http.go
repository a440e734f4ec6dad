package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/company_radar/app/display/internal/conf"
	"github.com/iWorld-y/company_radar/app/display/internal/service"
)

func NewHTTPServer(c *conf.Server, s *service.DisplayService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != "" {
		if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	r := srv.Route("/api/v1")
	r.GET("/sessions", s.ListSessions)
	r.GET("/sessions/{id}", s.GetSession)
	r.GET("/sessions/{id}/report", s.GetReport)
	r.GET("/sessions/{id}/report/html", s.GetReportHTML)

	return srv
}
