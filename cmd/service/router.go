package service

import (
	"github.com/jobtrail/jobtrail/app/core"
	"github.com/jobtrail/jobtrail/app/response"
	"github.com/jobtrail/jobtrail/cmd/service/handler"
	"github.com/jobtrail/jobtrail/cmd/service/middleware"
	"github.com/jobtrail/jobtrail/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func setupHttpRouter(s *handler.HttpSrv) {
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors, middleware.Metrics(s.Core))
	apiV1 := s.Engine.Group("/api/v1")
	{
		apiV1.GET("/connect", handler.ChatWebsocket(s.Core))
		apiV1.GET("/document/connect", handler.DocChatWebsocket(s.Core))

		chat := apiV1.Group("/chat")
		{
			chat.GET("/list", s.ListChatSession)
			chat.GET("/:session/history", s.GetChatSessionHistory)
			chat.DELETE("/:session", s.DeleteChatSession)
		}
	}
}
