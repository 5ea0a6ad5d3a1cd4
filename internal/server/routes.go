package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type kindInfo struct {
	Name     string `json:"name"`
	MsgType  string `json:"msg_type"`
	Required []int  `json:"required,omitempty"`
	Grouped  bool   `json:"grouped"`
}

func (a *Admin) registerRoutes() {
	r := a.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.Appeared).String(),
			"service": a.Name,
			"version": Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", a.authorize())
	api.GET("/session", func(c *gin.Context) {
		if a.sess == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session attached"})
			return
		}
		c.JSON(http.StatusOK, a.sess.Status())
	})

	api.GET("/session/pending", func(c *gin.Context) {
		if a.sess == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session attached"})
			return
		}
		pending := a.sess.Pending().List()
		c.JSON(http.StatusOK, gin.H{"count": len(pending), "orders": pending})
	})

	api.GET("/session/pending/:clordid", func(c *gin.Context) {
		if a.sess == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session attached"})
			return
		}
		item, ok := a.sess.Pending().Get(c.Param("clordid"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not pending"})
			return
		}
		c.JSON(http.StatusOK, item)
	})

	api.GET("/kinds", func(c *gin.Context) {
		all := a.kinds.All()
		out := make([]kindInfo, 0, len(all))
		for _, k := range all {
			out = append(out, kindInfo{
				Name:     k.Name,
				MsgType:  k.MsgType,
				Required: k.Required,
				Grouped:  k.Structure != nil,
			})
		}
		c.JSON(http.StatusOK, gin.H{"kinds": out})
	})
}
