package services

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/internal/notify"
	"github.com/cjnewshub/apiserver/internal/session"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const testChiefID = "admin1"

var testPolicy = moderation.NewPolicy(testChiefID)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUsers(users ...types.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]types.User)}
	for _, u := range users {
		u.Email = strings.ToLower(u.Email)
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) get(id string) types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) byEmailLocked(email string) (types.User, bool) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, true
		}
	}
	return types.User{}, false
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmailLocked(email)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByIdentifier(_ context.Context, identifier string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmailLocked(identifier); ok {
		return u, nil
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Name, strings.TrimSpace(identifier)) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmailLocked(user.Email); ok {
		return types.User{}, store.ErrAlreadyExists
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.JoinedAt = time.Now().UTC()
	user.UpdatedAt = user.JoinedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdateIP(_ context.Context, id, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IP = ip
	f.users[id] = u
	return nil
}

func (f *fakeUsers) ToggleStatus(_ context.Context, id, protectedID string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || id == protectedID {
		return types.User{}, store.ErrNotFound
	}
	if u.Status == types.UserStatusActive {
		u.Status = types.UserStatusBlocked
	} else {
		u.Status = types.UserStatusActive
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id, protectedID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok || id == protectedID {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeCodes mirrors the transactional behavior of the verification
// repository against a fakeUsers.
type fakeCodes struct {
	mu       sync.Mutex
	users    *fakeUsers
	recovery map[string]types.RecoveryRequest
	profile  map[string]types.ProfileUpdateRequest
}

func newFakeCodes(users *fakeUsers) *fakeCodes {
	return &fakeCodes{
		users:    users,
		recovery: make(map[string]types.RecoveryRequest),
		profile:  make(map[string]types.ProfileUpdateRequest),
	}
}

func (f *fakeCodes) UpsertRecovery(_ context.Context, req types.RecoveryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.Email = strings.ToLower(req.Email)
	f.recovery[req.Email] = req
	return nil
}

func (f *fakeCodes) ConsumeRecovery(ctx context.Context, email, code, passwordHash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	req, ok := f.recovery[email]
	if !ok || req.Code != code || !req.ExpiresAt.After(now) {
		return store.ErrNotFound
	}
	u, err := f.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	delete(f.recovery, email)
	return f.users.UpdatePassword(ctx, u.ID, passwordHash)
}

func (f *fakeCodes) UpsertProfileUpdate(_ context.Context, req types.ProfileUpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile[req.UserID] = req
	return nil
}

func (f *fakeCodes) ConsumeProfileUpdate(_ context.Context, userID, code string, now time.Time) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.profile[userID]
	if !ok || req.Code != code || !req.ExpiresAt.After(now) {
		return types.User{}, store.ErrNotFound
	}

	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	u, ok := f.users.users[userID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if req.NewEmail != "" {
		if other, taken := f.users.byEmailLocked(req.NewEmail); taken && other.ID != userID {
			return types.User{}, store.ErrAlreadyExists
		}
		u.Email = req.NewEmail
	}
	if req.NewPasswordHash != "" {
		u.PasswordHash = req.NewPasswordHash
	}
	f.users.users[userID] = u
	delete(f.profile, userID)
	return u, nil
}

func (f *fakeCodes) recoveryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recovery)
}

type fakeSessions struct {
	mu      sync.Mutex
	started []session.Session
	ended   []string
}

func (f *fakeSessions) Start(_ context.Context, userID, origin string) (string, session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := session.Session{ID: uuid.NewString(), UserID: userID, Origin: origin}
	f.started = append(f.started, s)
	return "token-" + s.ID, s, nil
}

func (f *fakeSessions) End(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (f *fakeNotifier) Send(_ context.Context, msg notify.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To, nil
}

type fakeEmailSettings struct {
	settings types.EmailSettings
}

func (f fakeEmailSettings) EmailSettings(context.Context) (types.EmailSettings, error) {
	return f.settings, nil
}

type fakeArticles struct {
	mu       sync.Mutex
	articles map[string]types.Article
}

func newFakeArticles(articles ...types.Article) *fakeArticles {
	f := &fakeArticles{articles: make(map[string]types.Article)}
	for _, a := range articles {
		f.articles[a.ID] = a
	}
	return f
}

func (f *fakeArticles) List(_ context.Context, filter store.ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Article
	for _, a := range f.articles {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.AuthorID != "" && a.AuthorID != filter.AuthorID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeArticles) Get(_ context.Context, id string) (types.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeArticles) Create(_ context.Context, article types.Article) (types.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles[article.ID] = article
	return article, nil
}

func (f *fakeArticles) Update(_ context.Context, article types.Article) (types.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.articles[article.ID]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	article.Views = current.Views
	article.AuthorID = current.AuthorID
	f.articles[article.ID] = article
	return article, nil
}

func (f *fakeArticles) SetStatus(_ context.Context, id string, status types.ArticleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	f.articles[id] = a
	return nil
}

func (f *fakeArticles) IncrementViews(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	a.Views++
	f.articles[id] = a
	return a.Views, nil
}

func (f *fakeArticles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.articles, id)
	return nil
}

type fakeAds struct {
	mu  sync.Mutex
	ads map[string]types.Advertisement
}

func newFakeAds(ads ...types.Advertisement) *fakeAds {
	f := &fakeAds{ads: make(map[string]types.Advertisement)}
	for _, ad := range ads {
		if ad.ClickedIPs == nil {
			ad.ClickedIPs = []string{}
		}
		f.ads[ad.ID] = ad
	}
	return f
}

func (f *fakeAds) List(_ context.Context, status types.AdStatus) ([]types.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Advertisement
	for _, ad := range f.ads {
		if status == "" || ad.Status == status {
			out = append(out, ad)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAds) Get(_ context.Context, id string) (types.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[id]
	if !ok {
		return types.Advertisement{}, store.ErrNotFound
	}
	return ad, nil
}

func (f *fakeAds) Create(_ context.Context, ad types.Advertisement) (types.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ads[ad.ID] = ad
	return ad, nil
}

func (f *fakeAds) Update(_ context.Context, ad types.Advertisement) (types.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.ads[ad.ID]
	if !ok {
		return types.Advertisement{}, store.ErrNotFound
	}
	ad.Clicks = current.Clicks
	ad.ClickedIPs = current.ClickedIPs
	f.ads[ad.ID] = ad
	return ad, nil
}

func (f *fakeAds) SetStatus(_ context.Context, id string, status types.AdStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[id]
	if !ok {
		return store.ErrNotFound
	}
	ad.Status = status
	f.ads[id] = ad
	return nil
}

func (f *fakeAds) ToggleStatus(_ context.Context, id string) (types.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[id]
	if !ok {
		return types.Advertisement{}, store.ErrNotFound
	}
	if ad.Status == types.AdActive {
		ad.Status = types.AdInactive
	} else {
		ad.Status = types.AdActive
	}
	f.ads[id] = ad
	return ad, nil
}

func (f *fakeAds) TrackClick(_ context.Context, id, origin string) (types.Advertisement, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ad, ok := f.ads[id]
	if !ok {
		return types.Advertisement{}, false, store.ErrNotFound
	}
	if slices.Contains(ad.ClickedIPs, origin) {
		return ad, false, nil
	}
	ad.ClickedIPs = append(slices.Clone(ad.ClickedIPs), origin)
	ad.Clicks++
	f.ads[id] = ad
	return ad, true, nil
}

func (f *fakeAds) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ads[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.ads, id)
	return nil
}

type fakePages struct {
	mu    sync.Mutex
	pages map[string]types.EPaperPage
}

func newFakePages(pages ...types.EPaperPage) *fakePages {
	f := &fakePages{pages: make(map[string]types.EPaperPage)}
	for _, p := range pages {
		f.pages[p.ID] = p
	}
	return f
}

func (f *fakePages) List(_ context.Context, filter store.EPaperFilter) ([]types.EPaperPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EPaperPage
	for _, p := range f.pages {
		if filter.Date != "" && p.Date != filter.Date {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (f *fakePages) Dates(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var dates []string
	for _, p := range f.pages {
		if p.Status == types.EPaperActive && !seen[p.Date] {
			seen[p.Date] = true
			dates = append(dates, p.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (f *fakePages) Get(_ context.Context, id string) (types.EPaperPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return types.EPaperPage{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakePages) Create(_ context.Context, page types.EPaperPage) (types.EPaperPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page.ID] = page
	return page, nil
}

func (f *fakePages) SetStatus(_ context.Context, id string, status types.EPaperStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	f.pages[id] = p
	return nil
}

func (f *fakePages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.pages, id)
	return nil
}

type fakeClippings struct {
	mu        sync.Mutex
	clippings map[string]types.Clipping
}

func newFakeClippings() *fakeClippings {
	return &fakeClippings{clippings: make(map[string]types.Clipping)}
}

func (f *fakeClippings) ListByUser(_ context.Context, userID string) ([]types.Clipping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Clipping
	for _, c := range f.clippings {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClippings) Get(_ context.Context, id string) (types.Clipping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clippings[id]
	if !ok {
		return types.Clipping{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeClippings) Create(_ context.Context, c types.Clipping) (types.Clipping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clippings[c.ID] = c
	return c, nil
}

func (f *fakeClippings) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clippings[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.clippings, id)
	return nil
}

type fakeGateway struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{data: make(map[string][]byte)}
}

func (f *fakeGateway) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeGateway) Save(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = slices.Clone(value)
	return nil
}

func (f *fakeGateway) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func chiefUser() types.User {
	return types.User{ID: testChiefID, Name: "Chief Editor", Email: "chief@cjnews.com", Role: types.RoleAdmin, Status: types.UserStatusActive}
}

func adminUser() types.User {
	return types.User{ID: "admin-2", Name: "Desk Admin", Email: "desk@cjnews.com", Role: types.RoleAdmin, Status: types.UserStatusActive}
}

func publisherUser() types.User {
	return types.User{ID: "pub-1", Name: "Pat Publisher", Email: "pat@cjnews.com", Role: types.RolePublisher, Status: types.UserStatusActive}
}

func subscriberUser() types.User {
	return types.User{ID: "sub-1", Name: "Sam Reader", Email: "sam@cjnews.com", Role: types.RoleSubscriber, Status: types.UserStatusActive, SubscriptionPlan: types.PlanFree}
}
