package cron

import (
	"Haven/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	likeRecountSpec string
	likeRecountJob  *job.LikeRecountJob
}

func NewCronManager(likeRecountSpec string, likeRecountJob *job.LikeRecountJob) *Manager {
	return &Manager{
		engine:          cron.New(cron.WithSeconds()),
		likeRecountSpec: likeRecountSpec,
		likeRecountJob:  likeRecountJob,
	}
}

// RegisterJobs 注册定时任务, spec 为空表示关闭该任务
func (s *Manager) RegisterJobs() error {
	if s.likeRecountSpec == "" {
		log.Info("like recount job disabled")
		return nil
	}
	if _, err := s.engine.AddJob(s.likeRecountSpec, s.likeRecountJob); err != nil {
		return err
	}
	return nil
}

// Entries 已注册的任务数
func (s *Manager) Entries() int {
	return len(s.engine.Entries())
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
