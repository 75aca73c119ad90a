package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.echo.GET("/metrics", s.metricsEndpoint)
	}

	api := s.echo.Group("/api/v1")
	if s.middleware.Auth != nil {
		api.Use(s.middleware.Auth.RequireToken())
	}

	animations := api.Group("/animations")
	animations.GET("", s.listAnimations)
	animations.GET("/validate", s.validateAnimations)
	animations.POST("/reload", s.reloadAnimations)
	animations.GET("/:id", s.getAnimation)

	clients := api.Group("/clients")
	clients.GET("", s.listClients)
	clients.POST("", s.connectClient)
	clients.GET("/:id", s.getClient)
	clients.DELETE("/:id", s.disconnectClient)
	clients.POST("/refresh", s.refreshAllClients)

	identities := api.Group("/identities")
	identities.GET("/:id/profile", s.getProfile)
	identities.POST("/:id/invalidate", s.invalidateIdentity)
	identities.PUT("/:id/group", s.assignGroup)

	api.PUT("/groups/:name", s.upsertGroup)

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.DELETE("/:name", s.cancelTask)
}
