package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mijwadul/Belajar/config"
	"github.com/mijwadul/Belajar/internal/api/handler"
	"github.com/mijwadul/Belajar/internal/api/middleware"
	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/metrics"
	"github.com/mijwadul/Belajar/pkg/jwt"
	"github.com/mijwadul/Belajar/pkg/redis"
)

// Deps 路由所需依赖
type Deps struct {
	Config   *config.Config
	Handler  *handler.Handler
	JWT      *jwt.Manager
	Redis    *redis.Client // 可为 nil，限流降级放行
	DB       *gorm.DB      // 可为 nil，健康检查只报告进程存活
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	cfg := d.Config
	h := d.Handler

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(d.DB))

	// ── Prometheus 指标 ──
	if cfg.Metrics.Enabled && d.Gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	importLimit := middleware.RateLimit(d.Redis, d.Metrics, cfg.Import.RateLimit, cfg.Import.RateWindow, d.Logger)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(d.JWT))
	{
		v1.GET("/me", h.Me)

		// 学校模块：变更仅超级管理员（Service 层判定）
		orgs := v1.Group("/organizations")
		{
			orgs.GET("", h.Organization.ListOrganizations)
			orgs.GET("/:id", h.Organization.GetOrganization)
			orgs.POST("", middleware.RoleAuth(authz.RoleSuperUser), h.Organization.CreateOrganization)
			orgs.PUT("/:id", middleware.RoleAuth(authz.RoleSuperUser), h.Organization.UpdateOrganization)
			orgs.DELETE("/:id", middleware.RoleAuth(authz.RoleSuperUser), h.Organization.DeleteOrganization)
		}

		// 用户模块
		users := v1.Group("/users")
		users.Use(middleware.RoleAuth(authz.RoleSuperUser, authz.RoleOrgAdmin))
		{
			users.GET("", h.User.ListUsers)
			users.POST("", h.User.CreateUser)
			users.GET("/:id", h.User.GetUser)
			users.PUT("/:id", h.User.UpdateUser)
			users.DELETE("/:id", h.User.DeleteUser)
		}

		// 班级与花名册模块
		classes := v1.Group("/classes")
		{
			classes.GET("", h.Class.ListClasses)
			classes.POST("", h.Class.CreateClass)
			classes.GET("/:id", h.Class.GetClass)
			classes.PUT("/:id", h.Class.UpdateClass)
			classes.DELETE("/:id", h.Class.DeleteClass)

			classes.GET("/:id/students", h.Class.ListStudents)
			classes.POST("/:id/students", h.Class.EnrollStudent)
			classes.DELETE("/:id/students/:student_id", h.Class.RemoveStudent)
			classes.POST("/:id/students/import", importLimit, h.Import.ImportStudents)
			classes.POST("/:id/students/import/file", importLimit, h.Import.ImportStudentsFile)
			classes.GET("/:id/students/export", h.Export.ExportRoster)

			classes.POST("/:id/attendance", h.Attendance.RecordAttendance)
			classes.GET("/:id/attendance", h.Attendance.ListAttendance)
		}

		// 学生模块
		students := v1.Group("/students")
		{
			students.POST("", h.Student.CreateStudent)
			students.POST("/bulk-delete", importLimit, h.Student.BulkDelete)
			students.GET("/:id", h.Student.GetStudent)
			students.PUT("/:id", h.Student.UpdateStudent)
		}
	}

	return r
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
