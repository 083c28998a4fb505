package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store/memory"
)

type testEnv struct {
	users         *memory.Users
	projects      *memory.Projects
	messages      *memory.Messages
	notifications *memory.Notifications
	catalog       *memory.Catalog
	orders        *memory.Orders
	reviews       *memory.Reviews
	pub           *recordingPublisher
	mail          *recordingMailer
	tokens        *auth.TokenIssuer

	auth       *AuthService
	projectSvc *ProjectService
	messageSvc *MessageService
	notifySvc  *NotificationService
	catalogSvc *CatalogService
	orderSvc   *OrderService
	reviewSvc  *ReviewService
	profileSvc *ProfileService
	dashboard  *DashboardService

	customer   auth.Identity
	customer2  auth.Identity
	freelancer auth.Identity
	rival      auth.Identity
	admin      auth.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mk := func(name, role string) (models.User, auth.Identity) {
		u := models.User{
			ID:       uuid.New(),
			Name:     name,
			Email:    name + "@example.com",
			Role:     models.Role(role),
			IsActive: true,
		}
		return u, auth.Identity{UserID: u.ID, Email: u.Email, Role: role}
	}
	cu, ci := mk("carol", auth.RoleCustomer)
	cu2, ci2 := mk("dave", auth.RoleCustomer)
	fu, fi := mk("frank", auth.RoleFreelancer)
	ru, ri := mk("rita", auth.RoleFreelancer)
	au, ai := mk("ada", auth.RoleAdmin)

	e := &testEnv{
		users:         memory.NewUsers(cu, cu2, fu, ru, au),
		notifications: memory.NewNotifications(),
		catalog:       memory.NewCatalog(),
		reviews:       memory.NewReviews(),
		pub:           &recordingPublisher{},
		mail:          &recordingMailer{},
		tokens:        auth.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour, time.Hour),
		customer:      ci,
		customer2:     ci2,
		freelancer:    fi,
		rival:         ri,
		admin:         ai,
	}
	e.projects = memory.NewProjects(e.users)
	e.messages = memory.NewMessages(e.users)
	e.orders = memory.NewOrders(e.catalog)

	e.auth = NewAuthService(e.users, e.tokens, e.mail, "http://app.test/")
	e.projectSvc = NewProjectService(e.projects, e.users)
	e.messageSvc = NewMessageService(e.messages, e.projectSvc, e.users, e.pub)
	e.notifySvc = NewNotificationService(e.notifications, e.pub)
	e.catalogSvc = NewCatalogService(e.catalog, e.orders, e.notifySvc)
	e.orderSvc = NewOrderService(e.orders, e.catalog, e.notifySvc)
	e.reviewSvc = NewReviewService(e.reviews, e.catalog, e.notifySvc)
	e.profileSvc = NewProfileService(e.users)
	e.dashboard = NewDashboardService(e.projects, e.messages, e.notifications, e.orders)
	return e
}

// openProject stores an open public project created by the customer.
func (e *testEnv) openProject(t *testing.T) models.Project {
	t.Helper()
	return e.projects.Put(models.Project{
		Title:       "Landing page",
		Description: "One page site",
		Budget:      500,
		Deadline:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:    "web",
		Status:      models.ProjectOpen,
		IsPublic:    true,
		CreatorID:   e.customer.UserID,
	})
}

// pairedProject stores a project that already has the freelancer as
// counter-party.
func (e *testEnv) pairedProject(t *testing.T, status models.ProjectStatus) models.Project {
	t.Helper()
	p := e.openProject(t)
	cp := e.freelancer.UserID
	p.CounterpartyID = &cp
	p.Status = status
	return e.projects.Put(p)
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}
