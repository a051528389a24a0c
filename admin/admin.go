// Package admin 在 gin 路由上暴露命名空间开关的运行时控制接口。
//
//	r := gin.New()
//	admin.Register(r.Group("/debug"), clog.Registry(), admin.WithMetrics())
//
// 路由：
//
//	GET    /namespaces                  当前模式列表
//	GET    /namespaces/check?namespace= 某个命名空间是否启用
//	POST   /namespaces/enable           {"patterns": "a:b,c:*"} 或 {"namespaces": ["a:b"]}
//	POST   /namespaces/disable          {"namespaces": ["a:b"]}
//	DELETE /namespaces                  清空，恢复为不过滤
//	GET    /metrics                     Prometheus 指标（需 WithMetrics）
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/stufflog/clog"
	"github.com/ceyewan/stufflog/metrics"
	"github.com/ceyewan/stufflog/nsfilter"
)

// Option 配置管理路由
type Option func(*options)

type options struct {
	logger  clog.Logger
	metrics bool
}

// WithLogger 记录每次变更，默认不记录
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics 额外挂载 GET /metrics
func WithMetrics() Option {
	return func(o *options) {
		o.metrics = true
	}
}

// StateResponse 注册表当前状态
type StateResponse struct {
	Filtering bool     `json:"filtering"`
	Patterns  []string `json:"patterns"`
}

// CheckResponse 单个命名空间的判定结果
type CheckResponse struct {
	Namespace string `json:"namespace"`
	Enabled   bool   `json:"enabled"`
}

// ChangeRequest enable/disable 的请求体
type ChangeRequest struct {
	Patterns   string   `json:"patterns"`
	Namespaces []string `json:"namespaces"`
}

type handler struct {
	reg    *nsfilter.Registry
	logger clog.Logger
}

// Register 在 r 上注册管理路由，reg 为 nil 时使用 clog 的全局注册表
func Register(r gin.IRouter, reg *nsfilter.Registry, opts ...Option) {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if reg == nil {
		reg = clog.Registry()
	}

	h := &handler{reg: reg, logger: o.logger}
	g := r.Group("/namespaces")
	g.GET("", h.state)
	g.GET("/check", h.check)
	g.POST("/enable", h.enable)
	g.POST("/disable", h.disable)
	g.DELETE("", h.reset)

	if o.metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
}

func (h *handler) stateResponse() StateResponse {
	patterns := h.reg.Patterns()
	if patterns == nil {
		patterns = []string{}
	}
	return StateResponse{Filtering: h.reg.Filtering(), Patterns: patterns}
}

func (h *handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *handler) check(c *gin.Context) {
	ns := c.Query("namespace")
	c.JSON(http.StatusOK, CheckResponse{Namespace: ns, Enabled: h.reg.IsEnabledFor(ns)})
}

func (h *handler) enable(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Patterns == "" && len(req.Namespaces) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "patterns or namespaces is required"})
		return
	}

	if req.Patterns != "" {
		if err := h.reg.EnableFromString(req.Patterns); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.reg.Enable(req.Namespaces...)

	h.logger.Info("namespaces enabled",
		clog.String("patterns", req.Patterns),
		clog.Any("namespaces", req.Namespaces),
		clog.String("remote", c.ClientIP()))
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *handler) disable(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Namespaces) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "namespaces is required"})
		return
	}

	h.reg.Disable(req.Namespaces...)
	h.logger.Info("namespaces disabled",
		clog.Any("namespaces", req.Namespaces),
		clog.String("remote", c.ClientIP()))
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *handler) reset(c *gin.Context) {
	h.reg.Reset()
	h.logger.Info("namespaces reset", clog.String("remote", c.ClientIP()))
	c.JSON(http.StatusOK, h.stateResponse())
}
