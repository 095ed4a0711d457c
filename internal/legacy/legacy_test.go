package legacy

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const export = `{
  "cj_users": [
    {"id": "admin1", "name": "Chief Editor", "email": "Chief@Example.com", "password": "secret", "role": "admin", "status": "active", "joinedAt": "01-01-2023"},
    {"id": "sub1", "name": "John Reader", "email": "reader@example.com", "password": "password123", "role": "subscriber"}
  ],
  "cj_articles": "[{\"id\":\"a1\",\"title\":\"Hello\",\"status\":\"published\",\"views\":7,\"tags\":[\"x\"]},{\"id\":\"a2\",\"title\":\"No status\"}]",
  "cj_ads": [
    {"id": "ad1", "advertiserName": "Acme", "size": "728x90", "status": "active", "clicks": 3, "clickedIps": ["1.1.1.1"]},
    {"id": "ad2", "advertiserName": "Beta", "size": "300x250", "status": "archived"},
    {"id": "ad3", "advertiserName": "Gamma", "size": "160x600", "status": "pending"}
  ],
  "cj_epaper_pages": [{"id": "p1", "pageNumber": 1, "imageUrl": "https://img/1.png", "date": "2025-01-01"}],
  "cj_clippings": [{"id": "c1", "dataUrl": "data:image/png;base64,aGVsbG8=", "timestamp": 1700000000000, "userId": "sub1"}],
  "cj_watermark": {"text": "CJ", "logoUrl": null},
  "cj_sub_settings": "{\"showPaymentButton\":true,\"paymentLink\":\"https://pay\",\"monthlyPrice\":\"$5\"}",
  "cj_current_user": {"id": "admin1"}
}`

func TestParseBackfillsMissingFields(t *testing.T) {
	snap, err := Parse(strings.NewReader(export))
	require.NoError(t, err)

	require.Len(t, snap.Users, 2)
	assert.Equal(t, "chief@example.com", snap.Users[0].Email)
	assert.Equal(t, 2023, snap.Users[0].JoinedAt.Year())
	assert.Empty(t, snap.Users[0].SubscriptionPlan)
	assert.Equal(t, types.UserStatusActive, snap.Users[1].Status)
	assert.Equal(t, types.PlanFree, snap.Users[1].SubscriptionPlan)

	require.Len(t, snap.Articles, 2)
	assert.Equal(t, types.ArticlePublished, snap.Articles[0].Status)
	assert.Equal(t, int64(7), snap.Articles[0].Views)
	assert.Equal(t, types.ArticlePending, snap.Articles[1].Status)
	assert.NotNil(t, snap.Articles[1].Tags)

	require.Len(t, snap.Ads, 3)
	assert.Equal(t, []string{"1.1.1.1"}, snap.Ads[0].ClickedIPs)
	assert.Equal(t, types.AdActive, snap.Ads[1].Status)
	assert.Equal(t, int64(0), snap.Ads[1].Clicks)
	assert.Equal(t, []string{}, snap.Ads[1].ClickedIPs)
	assert.Equal(t, types.AdPending, snap.Ads[2].Status)

	require.Len(t, snap.Pages, 1)
	assert.Equal(t, types.EPaperActive, snap.Pages[0].Status)

	require.Len(t, snap.Clippings, 1)
	assert.Equal(t, int64(1700000000000), snap.Clippings[0].CreatedAt.UnixMilli())

	require.NotNil(t, snap.Watermark)
	assert.Equal(t, "CJ", snap.Watermark.Text)
	require.NotNil(t, snap.Subscription)
	assert.Equal(t, "$5", snap.Subscription.MonthlyPrice)
	assert.Nil(t, snap.Email)
}

func TestParseRejectsMalformedValue(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"cj_users": "not json"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyUsers)
}

type recorder[T any] struct {
	items    []T
	existing map[string]bool
	id       func(T) string
}

func (r *recorder[T]) Create(_ context.Context, item T) (T, error) {
	if r.existing[r.id(item)] {
		var zero T
		return zero, store.ErrAlreadyExists
	}
	r.items = append(r.items, item)
	return item, nil
}

type fakeClippings struct {
	saved map[string][]byte
	meta  []types.Clipping
}

func (f *fakeClippings) Restore(_ context.Context, c types.Clipping, data []byte) (types.Clipping, error) {
	if !strings.HasPrefix(c.ContentType, "image/") {
		return types.Clipping{}, services.ErrInvalidInput
	}
	f.saved[c.ID] = data
	f.meta = append(f.meta, c)
	return c, nil
}

type fakeSettings struct {
	values map[string]any
	err    error
}

func (f *fakeSettings) Import(_ context.Context, key string, value any) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

type fixture struct {
	users     *recorder[types.User]
	articles  *recorder[types.Article]
	ads       *recorder[types.Advertisement]
	pages     *recorder[types.EPaperPage]
	clippings *fakeClippings
	settings  *fakeSettings
	importer  *Importer
}

func newFixture() *fixture {
	f := &fixture{
		users:     &recorder[types.User]{existing: map[string]bool{}, id: func(u types.User) string { return u.ID }},
		articles:  &recorder[types.Article]{existing: map[string]bool{}, id: func(a types.Article) string { return a.ID }},
		ads:       &recorder[types.Advertisement]{existing: map[string]bool{}, id: func(a types.Advertisement) string { return a.ID }},
		pages:     &recorder[types.EPaperPage]{existing: map[string]bool{}, id: func(p types.EPaperPage) string { return p.ID }},
		clippings: &fakeClippings{saved: map[string][]byte{}},
		settings:  &fakeSettings{values: map[string]any{}},
	}
	f.importer = NewImporter(Targets{
		Users:     f.users,
		Articles:  f.articles,
		Ads:       f.ads,
		Pages:     f.pages,
		Clippings: f.clippings,
		Settings:  f.settings,
	}, nil)
	f.importer.hashCost = bcrypt.MinCost
	return f
}

func TestImportWritesEverything(t *testing.T) {
	f := newFixture()
	snap, err := Parse(strings.NewReader(export))
	require.NoError(t, err)

	report, err := f.importer.Import(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, Count{Imported: 2}, report.Users)
	assert.Equal(t, Count{Imported: 2}, report.Articles)
	assert.Equal(t, Count{Imported: 3}, report.Ads)
	assert.Equal(t, Count{Imported: 1}, report.Pages)
	assert.Equal(t, Count{Imported: 1}, report.Clippings)
	assert.Equal(t, 2, report.Settings)

	chief := f.users.items[0]
	assert.NotEqual(t, "secret", chief.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(chief.PasswordHash), []byte("secret")))

	assert.Equal(t, []byte("hello"), f.clippings.saved["c1"])
	assert.Equal(t, "sub1", f.clippings.meta[0].UserID)
	assert.Equal(t, "image/png", f.clippings.meta[0].ContentType)

	assert.Contains(t, f.settings.values, services.WatermarkSettingsKey)
	assert.Contains(t, f.settings.values, services.SubscriptionSettingsKey)
	assert.NotContains(t, f.settings.values, services.EmailSettingsKey)
}

func TestImportSkipsExistingRecords(t *testing.T) {
	f := newFixture()
	f.users.existing["admin1"] = true
	f.ads.existing["ad2"] = true

	snap, err := Parse(strings.NewReader(export))
	require.NoError(t, err)

	report, err := f.importer.Import(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, Count{Imported: 1, Skipped: 1}, report.Users)
	assert.Equal(t, Count{Imported: 2, Skipped: 1}, report.Ads)
}

func TestImportSkipsUndecodableClippings(t *testing.T) {
	f := newFixture()
	snap := Snapshot{Clippings: []Clipping{
		{ID: "bad", DataURL: "not-a-data-url"},
		{ID: "text", DataURL: "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi"))},
	}}

	report, err := f.importer.Import(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, Count{Skipped: 2}, report.Clippings)
	assert.Empty(t, f.clippings.saved)
}

func TestImportStopsOnWriteError(t *testing.T) {
	f := newFixture()
	f.settings.err = errors.New("db down")
	snap := Snapshot{Watermark: &types.WatermarkSettings{Text: "x"}}

	_, err := f.importer.Import(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), services.WatermarkSettingsKey)
}
