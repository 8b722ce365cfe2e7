// internal/services/fakes_test.go
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/verdict-cms/internal/jobs"
	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

type memProducts struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Product
	err   error
}

func newMemProducts() *memProducts {
	return &memProducts{items: map[uuid.UUID]*models.Product{}}
}

func (m *memProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[p.ID] = p.Clone()
	return nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.items[p.ID] = p.Clone()
	return nil
}

func (m *memProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memProducts) Search(_ context.Context, f repository.ProductFilter) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.items {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *p.Clone())
	}
	return out, int64(len(out)), nil
}

func (m *memProducts) SlugTaken(_ context.Context, slug string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.items {
		if id != exclude && p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) stored(id uuid.UUID) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

type recordedAudit struct {
	mu     sync.Mutex
	events []rules.AuditEvent
}

func (r *recordedAudit) Record(_ context.Context, events []rules.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordedAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func (r *recordedAudit) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type scheduledJob struct {
	name  string
	delay time.Duration
	fn    jobs.Func
}

// capturedJobs holds scheduled jobs until the test runs them.
type capturedJobs struct {
	mu   sync.Mutex
	jobs []scheduledJob
}

func (c *capturedJobs) After(name string, delay time.Duration, fn jobs.Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, scheduledJob{name: name, delay: delay, fn: fn})
}

func (c *capturedJobs) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.jobs))
	for i, j := range c.jobs {
		out[i] = j.name
	}
	return out
}

func (c *capturedJobs) runAll(ctx context.Context) []error {
	c.mu.Lock()
	pending := c.jobs
	c.jobs = nil
	c.mu.Unlock()

	var errs []error
	for _, j := range pending {
		if err := j.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *capturedJobs) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	blocked   []*rules.Rejection
	published []*models.Product
}

func (n *recordingNotifier) PublishBlocked(_ context.Context, _ *models.Product, rej *rules.Rejection, _ *rules.Actor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocked = append(n.blocked, rej)
	return nil
}

func (n *recordingNotifier) FlaggedPublished(_ context.Context, p *models.Product, _ *rules.Actor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, p)
	return nil
}

type countingAggregates struct {
	mu         sync.Mutex
	categories []uuid.UUID
	brands     []uuid.UUID
}

func (a *countingAggregates) RecountCategory(_ context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.categories = append(a.categories, id)
	return nil
}

func (a *countingAggregates) RecountBrand(_ context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.brands = append(a.brands, id)
	return nil
}

type memVersions struct {
	mu       sync.Mutex
	versions map[uuid.UUID][]models.ProductVersion
}

func newMemVersions() *memVersions {
	return &memVersions{versions: map[uuid.UUID][]models.ProductVersion{}}
}

func (m *memVersions) Append(_ context.Context, productID uuid.UUID, build func(latest *models.ProductVersion) (*models.ProductVersion, error)) (*models.ProductVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.ProductVersion
	if list := m.versions[productID]; len(list) > 0 {
		v := list[len(list)-1]
		latest = &v
	}
	next, err := build(latest)
	if err != nil {
		return nil, err
	}
	next.ID = uuid.New()
	m.versions[productID] = append(m.versions[productID], *next)
	return next, nil
}

func (m *memVersions) ListByProduct(_ context.Context, productID uuid.UUID) ([]models.ProductVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ProductVersion(nil), m.versions[productID]...), nil
}

type memCategories struct {
	items    map[uuid.UUID]*models.Category
	err      error
	recounts []uuid.UUID
}

func (m *memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCategories) List(_ context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCategories) Create(_ context.Context, c *models.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCategories) Update(_ context.Context, c *models.Category) error {
	if _, ok := m.items[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memCategories) RecountProducts(_ context.Context, id uuid.UUID) error {
	m.recounts = append(m.recounts, id)
	return nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []models.AdminNotification
}

func (m *memNotifications) Create(_ context.Context, n *models.AdminNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) ListForRecipient(_ context.Context, recipientID uuid.UUID, _ utils.PaginationParams) ([]models.AdminNotification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AdminNotification
	for _, n := range m.items {
		if n.RecipientID == nil || *n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, recipientID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.items {
		if n.ID == id && (n.RecipientID == nil || *n.RecipientID == recipientID) {
			m.items[i].Status = "read"
			m.items[i].ReadAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

type memUsers struct {
	items map[uuid.UUID]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{items: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.items {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	if _, ok := m.items[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *memUsers) List(_ context.Context, _ repository.UserFilter) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range m.items {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func productFilterAll() repository.ProductFilter {
	return repository.ProductFilter{PaginationParams: utils.PaginationParams{Page: 1, Limit: 100}}
}
