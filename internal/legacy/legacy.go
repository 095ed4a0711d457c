// Package legacy reads the browser edition's localStorage export and loads
// it into the database.
package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

// Storage keys written by the browser edition.
const (
	KeyUsers         = "cj_users"
	KeyArticles      = "cj_articles"
	KeyAds           = "cj_ads"
	KeyEPaperPages   = "cj_epaper_pages"
	KeyClippings     = "cj_clippings"
	KeyEmailSettings = "cj_email_settings"
	KeySubSettings   = "cj_sub_settings"
	KeyWatermark     = "cj_watermark"
)

var joinedAtLayouts = []string{time.RFC3339, "2006-01-02", "02-01-2006"}

// Snapshot is a normalized export. Settings are nil when the export did
// not carry them.
type Snapshot struct {
	Users        []User
	Articles     []types.Article
	Ads          []types.Advertisement
	Pages        []types.EPaperPage
	Clippings    []Clipping
	Email        *types.EmailSettings
	Subscription *types.SubscriptionSettings
	Watermark    *types.WatermarkSettings
}

// User is an exported account together with its cleartext password.
type User struct {
	types.User
	Password string
}

// Clipping is an exported clipping with its image inlined as a data URL.
type Clipping struct {
	ID        string
	DataURL   string
	UserID    string
	CreatedAt time.Time
}

type userRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Password         string `json:"password"`
	Status           string `json:"status"`
	IP               string `json:"ip"`
	JoinedAt         string `json:"joinedAt"`
	SubscriptionPlan string `json:"subscriptionPlan"`
}

type articleRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Category   string   `json:"category"`
	Author     string   `json:"author"`
	AuthorID   string   `json:"authorId"`
	Date       string   `json:"date"`
	ImageURL   string   `json:"imageUrl"`
	VideoURL   string   `json:"videoUrl"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Status     string   `json:"status"`
	IsFeatured bool     `json:"isFeatured"`
	Views      int64    `json:"views"`
}

type adRecord struct {
	ID             string   `json:"id"`
	AdvertiserName string   `json:"advertiserName"`
	ImageURL       string   `json:"imageUrl"`
	TargetURL      string   `json:"targetUrl"`
	Size           string   `json:"size"`
	Status         string   `json:"status"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	Clicks         int64    `json:"clicks"`
	ClickedIPs     []string `json:"clickedIps"`
}

type pageRecord struct {
	ID         string `json:"id"`
	PageNumber int    `json:"pageNumber"`
	ImageURL   string `json:"imageUrl"`
	Date       string `json:"date"`
	Status     string `json:"status"`
}

type clippingRecord struct {
	ID        string `json:"id"`
	DataURL   string `json:"dataUrl"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId"`
}

type emailRecord struct {
	APIKey        string `json:"apiKey"`
	SenderEmail   string `json:"senderEmail"`
	CompanyName   string `json:"companyName"`
	EmailTemplate string `json:"emailTemplate"`
}

type subscriptionRecord struct {
	ShowPaymentButton bool   `json:"showPaymentButton"`
	PaymentLink       string `json:"paymentLink"`
	MonthlyPrice      string `json:"monthlyPrice"`
}

type watermarkRecord struct {
	Text    string  `json:"text"`
	LogoURL *string `json:"logoUrl"`
}

// Parse reads an export: a JSON object mapping storage keys to their
// values. A value may be the stored JSON itself or the raw localStorage
// string holding it. Unknown keys are ignored.
func Parse(r io.Reader) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode export: %w", err)
	}

	var (
		snap         Snapshot
		users        []userRecord
		articles     []articleRecord
		ads          []adRecord
		pages        []pageRecord
		clippings    []clippingRecord
		email        *emailRecord
		subscription *subscriptionRecord
		watermark    *watermarkRecord
	)
	fields := []struct {
		key string
		dst any
	}{
		{KeyUsers, &users},
		{KeyArticles, &articles},
		{KeyAds, &ads},
		{KeyEPaperPages, &pages},
		{KeyClippings, &clippings},
		{KeyEmailSettings, &email},
		{KeySubSettings, &subscription},
		{KeyWatermark, &watermark},
	}
	for _, f := range fields {
		value, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := decodeValue(value, f.dst); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", f.key, err)
		}
	}

	for _, u := range users {
		snap.Users = append(snap.Users, u.normalize())
	}
	for _, a := range articles {
		snap.Articles = append(snap.Articles, a.normalize())
	}
	for _, a := range ads {
		snap.Ads = append(snap.Ads, a.normalize())
	}
	for _, p := range pages {
		snap.Pages = append(snap.Pages, p.normalize())
	}
	for _, c := range clippings {
		clipping := Clipping{ID: c.ID, DataURL: c.DataURL, UserID: c.UserID}
		if c.Timestamp > 0 {
			clipping.CreatedAt = time.UnixMilli(c.Timestamp).UTC()
		}
		snap.Clippings = append(snap.Clippings, clipping)
	}
	if email != nil {
		snap.Email = &types.EmailSettings{
			APIKey:        email.APIKey,
			SenderEmail:   email.SenderEmail,
			CompanyName:   email.CompanyName,
			EmailTemplate: email.EmailTemplate,
		}
	}
	if subscription != nil {
		snap.Subscription = &types.SubscriptionSettings{
			ShowPaymentButton: subscription.ShowPaymentButton,
			PaymentLink:       subscription.PaymentLink,
			MonthlyPrice:      subscription.MonthlyPrice,
		}
	}
	if watermark != nil {
		snap.Watermark = &types.WatermarkSettings{Text: watermark.Text, LogoURL: watermark.LogoURL}
	}
	return snap, nil
}

// decodeValue unmarshals value into dst, unwrapping one level of string
// encoding first when present.
func decodeValue(value json.RawMessage, dst any) error {
	value = bytes.TrimSpace(value)
	if len(value) > 0 && value[0] == '"' {
		var inner string
		if err := json.Unmarshal(value, &inner); err != nil {
			return err
		}
		value = []byte(inner)
	}
	if len(value) == 0 || string(value) == "null" {
		return nil
	}
	return json.Unmarshal(value, dst)
}

func (u userRecord) normalize() User {
	user := types.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            strings.ToLower(strings.TrimSpace(u.Email)),
		Role:             types.Role(u.Role),
		Status:           types.UserStatus(u.Status),
		IP:               u.IP,
		SubscriptionPlan: types.SubscriptionPlan(u.SubscriptionPlan),
	}
	if !user.Role.Valid() {
		user.Role = types.RoleSubscriber
	}
	if !user.Status.Valid() {
		user.Status = types.UserStatusActive
	}
	if user.Role != types.RoleSubscriber {
		user.SubscriptionPlan = ""
	} else if user.SubscriptionPlan == "" {
		user.SubscriptionPlan = types.PlanFree
	}
	for _, layout := range joinedAtLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(u.JoinedAt)); err == nil {
			user.JoinedAt = t.UTC()
			break
		}
	}
	return User{User: user, Password: u.Password}
}

func (a articleRecord) normalize() types.Article {
	article := types.Article{
		ID:         a.ID,
		Title:      a.Title,
		Excerpt:    a.Excerpt,
		Category:   a.Category,
		Author:     a.Author,
		AuthorID:   a.AuthorID,
		Date:       a.Date,
		ImageURL:   a.ImageURL,
		VideoURL:   a.VideoURL,
		Content:    a.Content,
		Tags:       a.Tags,
		Status:     types.ArticleStatus(a.Status),
		IsFeatured: a.IsFeatured,
		Views:      a.Views,
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	if !article.Status.Valid() {
		article.Status = types.ArticlePending
	}
	return article
}

func (a adRecord) normalize() types.Advertisement {
	ad := types.Advertisement{
		ID:             a.ID,
		AdvertiserName: a.AdvertiserName,
		ImageURL:       a.ImageURL,
		TargetURL:      a.TargetURL,
		Size:           types.AdSize(a.Size),
		Status:         types.AdStatus(a.Status),
		StartDate:      a.StartDate,
		EndDate:        a.EndDate,
		Clicks:         a.Clicks,
		ClickedIPs:     a.ClickedIPs,
	}
	if ad.ClickedIPs == nil {
		ad.ClickedIPs = []string{}
	}
	if !ad.Status.Valid() {
		ad.Status = types.AdActive
	}
	if !ad.Size.Valid() {
		ad.Size = types.AdSizeRectangle
	}
	return ad
}

func (p pageRecord) normalize() types.EPaperPage {
	page := types.EPaperPage{
		ID:         p.ID,
		PageNumber: p.PageNumber,
		ImageURL:   p.ImageURL,
		Date:       p.Date,
		Status:     types.EPaperStatus(p.Status),
	}
	if !page.Status.Valid() {
		page.Status = types.EPaperActive
	}
	return page
}
