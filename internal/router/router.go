package router

import (
	"time"

	"github.com/coupleup/internal/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由。
// 中间件固定顺序：体积 → JSON 形态 → 认证 → 限流 → 业务处理；
// 注册/登录/健康检查在认证之外，其余全部要求有效访问令牌。
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.Default()

	r.Use(api.BodySizeLimit())
	r.Use(handler.RequireJSON())

	root := r.Group("/api")
	{
		root.GET("/health", api.Health)

		auth := root.Group("/auth")
		{
			auth.POST("/register", api.RateLimit("register", 30, time.Minute), api.Register)
			auth.POST("/login", api.RateLimit("login", 30, time.Minute), api.Login)
			auth.POST("/google/register", api.RateLimit("register", 30, time.Minute), api.GoogleRegister)
			auth.POST("/google/login", api.RateLimit("login", 30, time.Minute), api.GoogleLogin)
		}

		root.POST("/refresh", api.RateLimit("refresh", 30, time.Minute), api.Refresh)

		// 需要认证的路由
		authed := root.Group("")
		authed.Use(api.AuthRequired())
		{
			authed.GET("/couple", api.RateLimit("couple", 15, time.Minute), api.GetCouple)
			authed.DELETE("/users/delete", api.RateLimit("delete_user", 5, time.Minute), api.DeleteUser)

			authed.GET("/missions", api.RateLimit("list_missions", 15, time.Minute), api.GetMissions)
			authed.POST("/missions", api.RateLimit("create_item", 10, time.Hour), api.CreateMission)
			authed.DELETE("/missions/:id", api.RateLimit("delete_item", 20, time.Minute), api.DeleteMission)

			authed.GET("/challenges", api.RateLimit("list_challenges", 10, time.Minute), api.GetChallenges)
			authed.POST("/challenges", api.RateLimit("create_item", 10, time.Hour), api.CreateChallenge)
			authed.DELETE("/challenges/:id", api.RateLimit("delete_item", 20, time.Minute), api.DeleteChallenge)

			authed.GET("/scenarios", api.RateLimit("list_scenarios", 30, time.Minute), api.GetScenarios)
			authed.POST("/scenarios", api.RateLimit("create_item", 10, time.Hour), api.CreateScenario)
			authed.DELETE("/scenarios/:id", api.RateLimit("delete_item", 20, time.Minute), api.DeleteScenario)

			couples := authed.Group("/couples/:coupleID")
			{
				couples.POST("/missions", api.RateLimit("accept", 30, time.Minute), api.AcceptMission)
				couples.DELETE("/missions/:id", api.RateLimit("accept", 30, time.Minute), api.UnacceptMission)
				couples.POST("/challenges", api.RateLimit("accept", 30, time.Minute), api.AcceptChallenge)
				couples.DELETE("/challenges/:id", api.RateLimit("accept", 30, time.Minute), api.UnacceptChallenge)
				couples.POST("/scenarios", api.RateLimit("accept", 30, time.Minute), api.AcceptScenario)
				couples.DELETE("/scenarios/:id", api.RateLimit("accept", 30, time.Minute), api.UnacceptScenario)
			}

			story := authed.Group("/story")
			{
				story.POST("/start", api.RateLimit("story", 30, time.Minute), api.StartStory)
				story.GET("/status", api.RateLimit("story", 30, time.Minute), api.GetStoryStatus)
				story.POST("/progress", api.RateLimit("story", 30, time.Minute), api.RecordStoryProgress)
			}
		}
	}

	return r
}
