// Package memory implements the store repositories in memory. It backs the
// service and handler tests and needs no database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

type Users struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.User
}

func NewUsers(users ...models.User) *Users {
	m := &Users{byID: map[uuid.UUID]models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *Users) lookup(id uuid.UUID) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	return u, ok
}

func (m *Users) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (m *Users) EmailTaken(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email && u.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *Users) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *Users) Save(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = *u
	return nil
}

type Projects struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]models.Project
	users *Users
}

func NewProjects(users *Users) *Projects {
	return &Projects{byID: map[uuid.UUID]models.Project{}, users: users}
}

func (m *Projects) Put(p models.Project) models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.byID[p.ID] = p
	return p
}

func (m *Projects) Create(_ context.Context, p *models.Project) error {
	*p = m.Put(*p)
	return nil
}

func (m *Projects) Get(_ context.Context, id uuid.UUID) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return models.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (m *Projects) GetRow(ctx context.Context, id uuid.UUID) (store.ProjectRow, error) {
	p, err := m.Get(ctx, id)
	if err != nil {
		return store.ProjectRow{}, err
	}
	row := store.ProjectRow{Project: p}
	if u, ok := m.users.lookup(p.CreatorID); ok {
		row.CreatorName = u.Name
	}
	return row, nil
}

func (m *Projects) List(_ context.Context, flt store.ProjectFilter) ([]store.ProjectRow, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]store.ProjectRow, 0)
	for _, p := range m.byID {
		if flt.PublicOnly && !p.IsPublic {
			continue
		}
		if flt.CreatorID != nil && p.CreatorID != *flt.CreatorID {
			continue
		}
		if flt.ParticipantID != nil && !p.IsParticipant(*flt.ParticipantID) {
			continue
		}
		if flt.Status != "" && flt.Status != "all" && string(p.Status) != flt.Status {
			continue
		}
		row := store.ProjectRow{Project: p}
		if u, ok := m.users.lookup(p.CreatorID); ok {
			row.CreatorName = u.Name
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, int64(len(rows)), nil
}

func (m *Projects) Save(_ context.Context, p *models.Project) error {
	m.Put(*p)
	return nil
}

func (m *Projects) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *Projects) ClaimCounterparty(_ context.Context, projectID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[projectID]
	if !ok || p.CounterpartyID != nil || p.CreatorID == userID || !p.IsPublic || p.Status != models.ProjectOpen {
		return false, nil
	}
	p.CounterpartyID = &userID
	m.byID[projectID] = p
	return true, nil
}

func (m *Projects) StatusCounts(_ context.Context, userID uuid.UUID) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, p := range m.byID {
		if p.IsParticipant(userID) {
			out[string(p.Status)]++
		}
	}
	return out, nil
}

type Messages struct {
	mu    sync.Mutex
	rows  []models.Message
	users *Users
}

func NewMessages(users *Users) *Messages {
	return &Messages{users: users}
}

func (s *Messages) Create(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	s.rows = append(s.rows, *msg)
	return nil
}

func (s *Messages) Get(_ context.Context, id uuid.UUID) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.rows {
		if msg.ID == id {
			return msg, nil
		}
	}
	return models.Message{}, store.ErrNotFound
}

func (s *Messages) filter(userID uuid.UUID, keep func(models.Message) bool) []store.MessageRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.MessageRow, 0)
	for _, msg := range s.rows {
		if !keep(msg) {
			continue
		}
		row := store.MessageRow{Message: msg, IsSender: msg.SenderID == userID}
		if u, ok := s.users.lookup(msg.SenderID); ok {
			row.SenderName = u.Name
		}
		out = append(out, row)
	}
	return out
}

func (s *Messages) ListForProject(_ context.Context, projectID, userID uuid.UUID) ([]store.MessageRow, error) {
	return s.filter(userID, func(msg models.Message) bool {
		return msg.ProjectID == projectID && (msg.SenderID == userID || msg.RecipientID == userID)
	}), nil
}

func (s *Messages) ListBetween(_ context.Context, projectID, a, b uuid.UUID) ([]store.MessageRow, error) {
	return s.filter(a, func(msg models.Message) bool {
		return msg.ProjectID == projectID &&
			((msg.SenderID == a && msg.RecipientID == b) || (msg.SenderID == b && msg.RecipientID == a))
	}), nil
}

// ListUnread returns newest first.
func (s *Messages) ListUnread(_ context.Context, userID uuid.UUID) ([]store.UnreadRow, error) {
	rows := s.filter(userID, func(msg models.Message) bool { return msg.RecipientID == userID && !msg.IsRead })
	out := make([]store.UnreadRow, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, store.UnreadRow{Message: rows[i].Message, SenderName: rows[i].SenderName})
	}
	return out, nil
}

func (s *Messages) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, msg := range s.rows {
		if msg.RecipientID == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Messages) MarkRead(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].IsRead = true
			s.rows[i].ReadAt = &at
		}
	}
	return nil
}

func (s *Messages) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type Notifications struct {
	mu   sync.Mutex
	rows []models.Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (m *Notifications) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *Notifications) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0)
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *Notifications) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *Notifications) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *Notifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].UserID == userID && !m.rows[i].IsRead {
			m.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *Notifications) Delete(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Notifications) ForUser(userID uuid.UUID) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

type Catalog struct {
	mu         sync.Mutex
	categories map[uint]models.Category
	products   map[uint]models.Product
	nextID     uint
}

func NewCatalog() *Catalog {
	return &Catalog{categories: map[uint]models.Category{}, products: map[uint]models.Product{}}
}

func (m *Catalog) id() uint {
	m.nextID++
	return m.nextID
}

func (m *Catalog) ListCategories(_ context.Context, activeOnly bool) ([]store.CategoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.CategoryRow, 0)
	for _, c := range m.categories {
		if activeOnly && c.Status != models.StatusActive {
			continue
		}
		out = append(out, store.CategoryRow{Category: c})
	}
	return out, nil
}

func (m *Catalog) GetCategory(_ context.Context, id uint) (models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (m *Catalog) CategoryNameTaken(_ context.Context, name string, exclude uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == name && c.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *Catalog) CreateCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories[c.ID] = *c
	return nil
}

func (m *Catalog) SaveCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = *c
	return nil
}

func (m *Catalog) ListProducts(_ context.Context, flt store.ProductFilter) ([]store.ProductRow, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ProductRow, 0)
	for _, p := range m.products {
		if flt.ActiveOnly && p.Status != models.StatusActive {
			continue
		}
		if flt.SellerID != nil && p.UserID != *flt.SellerID {
			continue
		}
		if flt.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *flt.CategoryID) {
			continue
		}
		out = append(out, store.ProductRow{Product: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *Catalog) GetProductRow(ctx context.Context, id uint) (store.ProductRow, error) {
	p, err := m.GetProduct(ctx, id)
	return store.ProductRow{Product: p}, err
}

func (m *Catalog) GetProduct(_ context.Context, id uint) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (m *Catalog) ProductsByIDs(_ context.Context, ids []uint) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Catalog) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.products[p.ID] = *p
	return nil
}

func (m *Catalog) SaveProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = *p
	return nil
}

func (m *Catalog) DeleteProduct(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

type Orders struct {
	mu      sync.Mutex
	orders  map[uint]models.Order
	catalog *Catalog
	nextID  uint
}

func NewOrders(catalog *Catalog) *Orders {
	return &Orders{orders: map[uint]models.Order{}, catalog: catalog}
}

func (m *Orders) Create(_ context.Context, o *models.Order, items []models.OrderItem) error {
	m.catalog.mu.Lock()
	defer m.catalog.mu.Unlock()
	for _, it := range items {
		if m.catalog.products[it.ProductID].Stock < it.Quantity {
			return store.ErrInsufficientStock
		}
	}
	for _, it := range items {
		p := m.catalog.products[it.ProductID]
		p.Stock -= it.Quantity
		m.catalog.products[it.ProductID] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = m.nextID
	for i := range items {
		items[i].OrderID = o.ID
	}
	o.Items = items
	m.orders[o.ID] = *o
	return nil
}

func (m *Orders) Get(_ context.Context, id uint) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return o, nil
}

func (m *Orders) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Orders) ListForSeller(_ context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		for _, it := range o.Items {
			if it.SellerID == sellerID {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (m *Orders) UpdateStatus(_ context.Context, id uint, status models.OrderStatus, approval *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Status = status
	if approval != nil {
		o.DeveloperApproval = approval
	}
	m.orders[id] = o
	return nil
}

func (m *Orders) BuyersOfProduct(_ context.Context, productID uint) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, o := range m.orders {
		for _, it := range o.Items {
			if it.ProductID == productID && !seen[o.UserID] {
				seen[o.UserID] = true
				out = append(out, o.UserID)
			}
		}
	}
	return out, nil
}

func (m *Orders) CountOpen(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.UserID == userID && o.Status.Open() {
			n++
		}
	}
	return n, nil
}

type Reviews struct {
	mu       sync.Mutex
	reviews  map[uint]models.Review
	criteria map[uint]models.RatingCriteria
	ratings  []models.ProductRating
	nextID   uint
}

func NewReviews() *Reviews {
	return &Reviews{
		reviews: map[uint]models.Review{},
		criteria: map[uint]models.RatingCriteria{
			1: {ID: 1, Name: "quality", Status: models.StatusActive},
			2: {ID: 2, Name: "communication", Status: models.StatusActive},
			3: {ID: 3, Name: "timeliness", Status: models.StatusActive},
		},
	}
}

func (m *Reviews) PutCriteria(c models.RatingCriteria) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.criteria[c.ID] = c
}

func (m *Reviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.reviews[r.ID] = *r
	return nil
}

func (m *Reviews) Get(_ context.Context, id uint) (models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return models.Review{}, store.ErrNotFound
	}
	return r, nil
}

func (m *Reviews) list(keep func(models.Review) bool) []store.ReviewRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ReviewRow, 0)
	for _, r := range m.reviews {
		if keep(r) {
			out = append(out, store.ReviewRow{Review: r})
		}
	}
	return out
}

func (m *Reviews) ListApprovedForProduct(_ context.Context, productID uint) ([]store.ReviewRow, error) {
	return m.list(func(r models.Review) bool { return r.ProductID == productID && r.Status == models.ReviewApproved }), nil
}

func (m *Reviews) ListForUser(_ context.Context, userID uuid.UUID) ([]store.ReviewRow, error) {
	return m.list(func(r models.Review) bool { return r.UserID == userID }), nil
}

func (m *Reviews) ListByStatus(_ context.Context, status string) ([]store.ReviewRow, error) {
	return m.list(func(r models.Review) bool { return r.Status == status }), nil
}

func (m *Reviews) SetStatus(_ context.Context, id uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reviews[id]
	r.Status = status
	m.reviews[id] = r
	return nil
}

func (m *Reviews) ListCriteria(_ context.Context) ([]models.RatingCriteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RatingCriteria, 0)
	for _, c := range m.criteria {
		if c.Status == models.StatusActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Reviews) GetCriteria(_ context.Context, id uint) (models.RatingCriteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.criteria[id]
	if !ok {
		return models.RatingCriteria{}, store.ErrNotFound
	}
	return c, nil
}

func (m *Reviews) UpsertRating(_ context.Context, r *models.ProductRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.ratings {
		if x.UserID == r.UserID && x.ProductID == r.ProductID && x.CriteriaID == r.CriteriaID {
			m.ratings[i].Rating = r.Rating
			return nil
		}
	}
	m.ratings = append(m.ratings, *r)
	return nil
}

func (m *Reviews) ProductAverages(_ context.Context, productID uint) ([]store.CriteriaAverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := map[uint]*store.CriteriaAverage{}
	var ids []uint
	for _, r := range m.ratings {
		if r.ProductID != productID {
			continue
		}
		a, ok := sums[r.CriteriaID]
		if !ok {
			a = &store.CriteriaAverage{CriteriaID: r.CriteriaID, Name: m.criteria[r.CriteriaID].Name}
			sums[r.CriteriaID] = a
			ids = append(ids, r.CriteriaID)
		}
		a.Average += float64(r.Rating)
		a.Count++
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]store.CriteriaAverage, 0, len(ids))
	for _, id := range ids {
		a := sums[id]
		a.Average /= float64(a.Count)
		out = append(out, *a)
	}
	return out, nil
}

func (m *Reviews) RatingsByUser(_ context.Context, userID uuid.UUID, productID uint) ([]models.ProductRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ProductRating, 0)
	for _, r := range m.ratings {
		if r.UserID == userID && r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

