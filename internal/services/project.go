package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

const msgProjectNotFound = "project not found"

// ProjectInput is shared by create and update. On update only the
// fields present in the body are applied.
type ProjectInput struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Requirements json.RawMessage `json:"requirements"`
	Budget       json.RawMessage `json:"budget"`
	Deadline     *string         `json:"deadline"`
	Category     *string         `json:"category"`
	IsPublic     *bool           `json:"is_public"`
}

type ProjectQuery struct {
	Scope    string // all | mine
	Status   string
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

type ProjectPage struct {
	Items []store.ProjectRow `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// Caller-driven status changes. open -> approved goes through Approve.
var projectTransitions = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectOpen:       {models.ProjectCancelled},
	models.ProjectApproved:   {models.ProjectInProgress, models.ProjectCancelled},
	models.ProjectInProgress: {models.ProjectCompleted, models.ProjectCancelled},
}

func canTransition(from, to models.ProjectStatus) bool {
	for _, s := range projectTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type ProjectService struct {
	projects ProjectRepository
	users    UserRepository
	now      func() time.Time
	logger   zerolog.Logger
}

func NewProjectService(projects ProjectRepository, users UserRepository) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		now:      time.Now,
		logger:   log.WithComponent("projects"),
	}
}

func (s *ProjectService) Create(ctx context.Context, caller auth.Identity, in ProjectInput) (models.Project, error) {
	p := models.Project{
		CreatorID: caller.UserID,
		Status:    models.ProjectOpen,
		IsPublic:  true,
	}
	if err := applyProjectInput(&p, in, true); err != nil {
		return models.Project{}, err
	}
	if err := s.projects.Create(ctx, &p); err != nil {
		return models.Project{}, apperr.Wrap(err, "create project")
	}
	s.logger.Info().Str("project_id", p.ID.String()).Str("creator_id", caller.UserID.String()).Msg("project created")
	return p, nil
}

func applyProjectInput(p *models.Project, in ProjectInput, create bool) error {
	errs := apperr.FieldErrors{}

	text := func(field string, v *string, dst *string) {
		if v == nil {
			if create {
				errs.Add(field, field+" is required")
			}
			return
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			errs.Add(field, field+" is required")
			return
		}
		*dst = t
	}
	text("title", in.Title, &p.Title)
	text("description", in.Description, &p.Description)
	text("category", in.Category, &p.Category)

	budget, present, err := ParseAmount(in.Budget)
	switch {
	case err != nil:
		errs.Add("budget", "budget "+err.Error())
	case !present && create:
		errs.Add("budget", "budget is required")
	case present && budget <= 0:
		errs.Add("budget", "budget must be greater than zero")
	case present:
		p.Budget = budget
	}

	if in.Deadline == nil || strings.TrimSpace(*in.Deadline) == "" {
		if create || in.Deadline != nil {
			errs.Add("deadline", "deadline is required")
		}
	} else if d, err := ParseDate(*in.Deadline); err != nil {
		errs.Add("deadline", "deadline "+err.Error())
	} else {
		p.Deadline = d
	}

	if in.Requirements != nil || create {
		reqs, err := ParseList(in.Requirements)
		if err != nil {
			errs.Add("requirements", "requirements "+err.Error())
		} else {
			p.Requirements = reqs
		}
	}

	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}

	if len(errs) > 0 {
		return apperr.Invalid(errs)
	}
	return nil
}

// List returns public projects, or the caller's own with scope=mine.
func (s *ProjectService) List(ctx context.Context, caller *auth.Identity, q ProjectQuery) (ProjectPage, error) {
	offset, limit := store.Page(q.Page, q.Limit)
	f := store.ProjectFilter{
		Status:   strings.ToLower(strings.TrimSpace(q.Status)),
		Category: strings.TrimSpace(q.Category),
		Search:   strings.TrimSpace(q.Search),
		Sort:     q.Sort,
		Offset:   offset,
		Limit:    limit,
	}
	if f.Status != "" && f.Status != "all" && !models.ProjectStatus(f.Status).Valid() {
		return ProjectPage{}, apperr.Validation("unknown status filter")
	}

	if q.Scope == "mine" {
		if caller == nil {
			return ProjectPage{}, apperr.Unauthorized("authentication required")
		}
		f.ParticipantID = &caller.UserID
	} else {
		f.PublicOnly = true
	}

	rows, total, err := s.projects.List(ctx, f)
	if err != nil {
		return ProjectPage{}, apperr.Wrap(err, "list projects")
	}
	return ProjectPage{Items: rows, Total: total, Page: offset/limit + 1, Limit: limit}, nil
}

// ListByUser lists projects created by userID. Private ones are only shown
// to their participants.
func (s *ProjectService) ListByUser(ctx context.Context, caller *auth.Identity, userID uuid.UUID, q ProjectQuery) (ProjectPage, error) {
	offset, limit := store.Page(q.Page, q.Limit)
	f := store.ProjectFilter{
		CreatorID: &userID,
		Status:    strings.ToLower(strings.TrimSpace(q.Status)),
		Sort:      q.Sort,
		Offset:    offset,
		Limit:     limit,
	}
	if caller == nil || caller.UserID != userID {
		f.PublicOnly = true
	}

	rows, total, err := s.projects.List(ctx, f)
	if err != nil {
		return ProjectPage{}, apperr.Wrap(err, "list projects")
	}
	return ProjectPage{Items: rows, Total: total, Page: offset/limit + 1, Limit: limit}, nil
}

// Get hides private projects from non-participants behind a 404.
func (s *ProjectService) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (store.ProjectRow, error) {
	row, err := s.projects.GetRow(ctx, id)
	if err != nil {
		return store.ProjectRow{}, lookup(err, msgProjectNotFound)
	}
	if !row.IsPublic && (caller == nil || !row.Project.IsParticipant(caller.UserID)) {
		return store.ProjectRow{}, apperr.NotFound(msgProjectNotFound)
	}
	return row, nil
}

// Authorize loads a project and requires userID to be one of its
// participants.
func (s *ProjectService) Authorize(ctx context.Context, userID, projectID uuid.UUID) (models.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return models.Project{}, lookup(err, msgProjectNotFound)
	}
	if !p.IsParticipant(userID) {
		return models.Project{}, outsider(p)
	}
	return p, nil
}

// outsider is the refusal for a non-participant. Private projects look
// absent to outsiders.
func outsider(p models.Project) error {
	if !p.IsPublic {
		return apperr.NotFound(msgProjectNotFound)
	}
	return apperr.Forbidden("you are not a participant of this project")
}

func (s *ProjectService) loadOwned(ctx context.Context, caller auth.Identity, id uuid.UUID) (models.Project, error) {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return models.Project{}, lookup(err, msgProjectNotFound)
	}
	if p.CreatorID != caller.UserID {
		if !p.IsPublic && !p.IsParticipant(caller.UserID) {
			return models.Project{}, apperr.NotFound(msgProjectNotFound)
		}
		return models.Project{}, apperr.Forbidden("only the project creator can do this")
	}
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, caller auth.Identity, id uuid.UUID, in ProjectInput) (models.Project, error) {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return models.Project{}, err
	}
	if p.Status == models.ProjectCompleted || p.Status == models.ProjectCancelled {
		return models.Project{}, apperr.Validation("a closed project cannot be edited")
	}
	if err := applyProjectInput(&p, in, false); err != nil {
		return models.Project{}, err
	}
	if err := s.projects.Save(ctx, &p); err != nil {
		return models.Project{}, apperr.Wrap(err, "update project")
	}
	return p, nil
}

func (s *ProjectService) Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "delete project")
	}
	s.logger.Info().Str("project_id", id.String()).Msg("project deleted")
	return nil
}

// UpdateStatus moves a project along its lifecycle on behalf of a
// participant.
func (s *ProjectService) UpdateStatus(ctx context.Context, caller auth.Identity, id uuid.UUID, status string) (models.Project, error) {
	p, err := s.Authorize(ctx, caller.UserID, id)
	if err != nil {
		return models.Project{}, err
	}

	to := models.ProjectStatus(strings.ToLower(strings.TrimSpace(status)))
	if !to.Valid() {
		return models.Project{}, apperr.Validation("unknown status")
	}
	if to == models.ProjectApproved && p.Status == models.ProjectOpen {
		return models.Project{}, apperr.Validation("use the approve action to approve a project")
	}
	if !canTransition(p.Status, to) {
		return models.Project{}, apperr.Validation("cannot move project from " + string(p.Status) + " to " + string(to))
	}

	p.Status = to
	if err := s.projects.Save(ctx, &p); err != nil {
		return models.Project{}, apperr.Wrap(err, "update project status")
	}
	return p, nil
}

// Approve lets the creator accept a freelancer for an open project. The
// counter-party may be named here or may already be set from first contact.
func (s *ProjectService) Approve(ctx context.Context, caller auth.Identity, id uuid.UUID, counterpartyID *uuid.UUID) (models.Project, error) {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return models.Project{}, err
	}
	if p.Status != models.ProjectOpen {
		return models.Project{}, apperr.Validation("only open projects can be approved")
	}

	if counterpartyID != nil {
		if p.CounterpartyID != nil && *p.CounterpartyID != *counterpartyID {
			return models.Project{}, apperr.Validation("project already has a counter-party")
		}
		if *counterpartyID == p.CreatorID {
			return models.Project{}, apperr.Validation("the creator cannot be the counter-party")
		}
		u, err := s.users.GetByID(ctx, *counterpartyID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Project{}, apperr.Validation("counter-party not found")
			}
			return models.Project{}, apperr.Wrap(err, "load counter-party")
		}
		if u.Role != models.RoleFreelancer {
			return models.Project{}, apperr.Validation("counter-party must be a freelancer")
		}
		p.CounterpartyID = counterpartyID
	}
	if p.CounterpartyID == nil {
		return models.Project{}, apperr.Validation("a counter-party is required to approve")
	}

	p.Status = models.ProjectApproved
	if err := s.projects.Save(ctx, &p); err != nil {
		return models.Project{}, apperr.Wrap(err, "approve project")
	}
	return p, nil
}

// claimOnFirstContact makes a freelancer the counter-party of a project
// that has none when they write to its creator.
func (s *ProjectService) claimOnFirstContact(ctx context.Context, caller auth.Identity, p models.Project, recipientID uuid.UUID) (models.Project, error) {
	if p.CounterpartyID != nil || caller.Role != auth.RoleFreelancer || recipientID != p.CreatorID {
		return p, nil
	}
	if !p.IsPublic || p.Status != models.ProjectOpen {
		return p, nil
	}

	won, err := s.projects.ClaimCounterparty(ctx, p.ID, caller.UserID)
	if err != nil {
		return p, apperr.Wrap(err, "assign counter-party")
	}
	if won {
		p.CounterpartyID = &caller.UserID
		s.logger.Info().Str("project_id", p.ID.String()).Str("counterparty_id", caller.UserID.String()).Msg("counter-party assigned")
		return p, nil
	}

	fresh, err := s.projects.Get(ctx, p.ID)
	if err != nil {
		return p, lookup(err, msgProjectNotFound)
	}
	return fresh, nil
}
