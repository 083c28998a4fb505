package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type DashboardStats struct {
	Projects            map[string]int64 `json:"projects"`
	TotalProjects       int64            `json:"total_projects"`
	UnreadMessages      int64            `json:"unread_messages"`
	UnreadNotifications int64            `json:"unread_notifications"`
	OpenOrders          int64            `json:"open_orders"`
}

// DashboardService gathers the caller's counters. A failing counter is
// logged and reported as zero so the dashboard still renders.
type DashboardService struct {
	projects      ProjectRepository
	messages      MessageRepository
	notifications NotificationRepository
	orders        OrderRepository
	logger        zerolog.Logger
}

func NewDashboardService(projects ProjectRepository, messages MessageRepository, notifications NotificationRepository, orders OrderRepository) *DashboardService {
	return &DashboardService{
		projects:      projects,
		messages:      messages,
		notifications: notifications,
		orders:        orders,
		logger:        log.WithComponent("dashboard"),
	}
}

func (s *DashboardService) Stats(ctx context.Context, caller auth.Identity) DashboardStats {
	uid := caller.UserID
	out := DashboardStats{Projects: map[string]int64{}}
	for _, st := range []models.ProjectStatus{
		models.ProjectOpen, models.ProjectApproved, models.ProjectInProgress,
		models.ProjectCompleted, models.ProjectCancelled,
	} {
		out.Projects[string(st)] = 0
	}

	counts, err := s.projects.StatusCounts(ctx, uid)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("project counts")
	}
	for st, n := range counts {
		out.Projects[st] = n
		out.TotalProjects += n
	}

	if out.UnreadMessages, err = s.messages.CountUnread(ctx, uid); err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("unread messages")
	}
	if out.UnreadNotifications, err = s.notifications.CountUnread(ctx, uid); err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("unread notifications")
	}
	if out.OpenOrders, err = s.orders.CountOpen(ctx, uid); err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("open orders")
	}
	return out
}
