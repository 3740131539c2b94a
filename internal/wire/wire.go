package wire

import (
	"Haven/internal/api"
	"Haven/internal/api/config"
	"Haven/internal/api/handler"
	"Haven/internal/job"
	"Haven/internal/pkg/cron"
	"Haven/internal/repository"
	"Haven/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router      *gin.Engine
	DB          *gorm.DB
	CronMgr     *cron.Manager
	UserService service.UserService
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	discussionRepo := repository.NewDiscussionRepo(db)

	userService := service.NewUserService(userRepo)
	discussionService := service.NewDiscussionService(discussionRepo)

	handlers := &api.HandlersGroup{
		UserHandler:       handler.NewUserHandler(userService),
		DiscussionHandler: handler.NewDiscussionHandler(discussionService),
	}

	router := api.SetupRouter(cfg.Server.BasePath, handlers)

	cronMgr := cron.NewCronManager(cfg.Jobs.LikeRecount, job.NewLikeRecountJob(discussionService))

	return &ApplicationContainer{
		Router:      router,
		DB:          db,
		CronMgr:     cronMgr,
		UserService: userService,
	}, nil
}
