package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmeiser/popcorn-sales-manager-sub005/api/middleware"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/accounts"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/campaigns"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/catalogs"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/invites"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/orders"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/profiles"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/shares"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/templates"
	pkgAuth "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth/session"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/config"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/logger"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct {
	active  bool
	revoked []string
	started []string
}

func (s *stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return s.active, nil
}

func (s *stubSessionManager) Start(ctx context.Context, accessID string) error {
	s.started = append(s.started, accessID)
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubAccountsService struct {
	ensured int
}

func (s *stubAccountsService) EnsureAccount(ctx context.Context, subject, email, displayName string) (*accounts.AccountDTO, error) {
	s.ensured++
	return &accounts.AccountDTO{
		ID:          ids.FromUUID(ids.KindAccount, uuid.New()),
		Email:       email,
		DisplayName: displayName,
	}, nil
}

func (s *stubAccountsService) Get(ctx context.Context, caller ids.CanonicalID) (*accounts.AccountDTO, error) {
	return &accounts.AccountDTO{ID: caller, Email: "me@example.com"}, nil
}

func (s *stubAccountsService) UpdateSettings(ctx context.Context, caller ids.CanonicalID, input accounts.UpdateSettingsInput) (*accounts.AccountDTO, error) {
	panic("unimplemented")
}

type stubProfilesService struct {
	profile *profiles.ProfileDTO
}

func (s *stubProfilesService) Create(ctx context.Context, caller ids.CanonicalID, input profiles.CreateProfileInput) (*profiles.ProfileDTO, error) {
	panic("unimplemented")
}

func (s *stubProfilesService) Get(ctx context.Context, caller ids.CanonicalID, profileID string) (*profiles.ProfileDTO, error) {
	if s.profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.profile, nil
}

func (s *stubProfilesService) List(ctx context.Context, caller ids.CanonicalID) (*profiles.ProfileListDTO, error) {
	return &profiles.ProfileListDTO{}, nil
}

func (s *stubProfilesService) Update(ctx context.Context, caller ids.CanonicalID, profileID string, input profiles.UpdateProfileInput) (*profiles.ProfileDTO, error) {
	panic("unimplemented")
}

func (s *stubProfilesService) Delete(ctx context.Context, caller ids.CanonicalID, profileID string) error {
	panic("unimplemented")
}

type stubSharesService struct{}

func (stubSharesService) Grant(ctx context.Context, caller ids.CanonicalID, profileID string, input shares.GrantInput) (*shares.ShareDTO, error) {
	panic("unimplemented")
}

func (stubSharesService) Revoke(ctx context.Context, caller ids.CanonicalID, profileID, targetAccountID string) error {
	panic("unimplemented")
}

func (stubSharesService) List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]shares.ShareDTO, error) {
	panic("unimplemented")
}

type stubInvitesService struct{}

func (stubInvitesService) Create(ctx context.Context, caller ids.CanonicalID, profileID string, input invites.CreateInviteInput) (*invites.InviteDTO, error) {
	panic("unimplemented")
}

func (stubInvitesService) Redeem(ctx context.Context, caller ids.CanonicalID, code string) (*shares.ShareDTO, error) {
	return &shares.ShareDTO{}, nil
}

func (stubInvitesService) List(ctx context.Context, caller ids.CanonicalID, profileID string) ([]invites.InviteDTO, error) {
	panic("unimplemented")
}

func (stubInvitesService) Revoke(ctx context.Context, caller ids.CanonicalID, profileID, code string) error {
	panic("unimplemented")
}

type stubCampaignsService struct{}

func (stubCampaignsService) Create(ctx context.Context, caller ids.CanonicalID, profileID string, input campaigns.CreateCampaignInput) (*campaigns.CampaignDTO, error) {
	panic("unimplemented")
}

func (stubCampaignsService) Get(ctx context.Context, caller ids.CanonicalID, campaignID string) (*campaigns.CampaignDTO, error) {
	panic("unimplemented")
}

func (stubCampaignsService) List(ctx context.Context, caller ids.CanonicalID, profileID string, params pagination.Params) (*campaigns.CampaignListDTO, error) {
	return &campaigns.CampaignListDTO{}, nil
}

func (stubCampaignsService) Update(ctx context.Context, caller ids.CanonicalID, campaignID string, input campaigns.UpdateCampaignInput) (*campaigns.CampaignDTO, error) {
	panic("unimplemented")
}

func (stubCampaignsService) Delete(ctx context.Context, caller ids.CanonicalID, campaignID string) error {
	panic("unimplemented")
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, caller ids.CanonicalID, campaignID string, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, caller ids.CanonicalID, orderID string) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) List(ctx context.Context, caller ids.CanonicalID, campaignID string, params pagination.Params) (*orders.OrderListDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Update(ctx context.Context, caller ids.CanonicalID, orderID string, input orders.UpdateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Delete(ctx context.Context, caller ids.CanonicalID, orderID string) error {
	panic("unimplemented")
}

type stubCatalogsService struct{}

func (stubCatalogsService) Create(ctx context.Context, caller ids.CanonicalID, input catalogs.CreateCatalogInput) (*catalogs.CatalogDTO, error) {
	panic("unimplemented")
}

func (stubCatalogsService) Get(ctx context.Context, caller ids.CanonicalID, catalogID string) (*catalogs.CatalogDTO, error) {
	panic("unimplemented")
}

func (stubCatalogsService) List(ctx context.Context, caller ids.CanonicalID) ([]catalogs.CatalogDTO, error) {
	return []catalogs.CatalogDTO{}, nil
}

func (stubCatalogsService) Update(ctx context.Context, caller ids.CanonicalID, catalogID string, input catalogs.UpdateCatalogInput) (*catalogs.CatalogDTO, error) {
	panic("unimplemented")
}

func (stubCatalogsService) Delete(ctx context.Context, caller ids.CanonicalID, catalogID string) error {
	panic("unimplemented")
}

type stubTemplatesService struct{}

func (stubTemplatesService) Publish(ctx context.Context, caller ids.CanonicalID, input templates.PublishInput) (*templates.TemplateDTO, error) {
	panic("unimplemented")
}

func (stubTemplatesService) Get(ctx context.Context, caller ids.CanonicalID, code string) (*templates.TemplateDTO, error) {
	panic("unimplemented")
}

func (stubTemplatesService) Discover(ctx context.Context, caller ids.CanonicalID, query templates.DiscoverQuery) ([]templates.TemplateDTO, error) {
	return []templates.TemplateDTO{}, nil
}

func (stubTemplatesService) Deactivate(ctx context.Context, caller ids.CanonicalID, code string) error {
	panic("unimplemented")
}

type stubPaymentMethodsService struct{}

func (stubPaymentMethodsService) List(ctx context.Context, caller ids.CanonicalID) ([]string, error) {
	return []string{"Cash", "Check"}, nil
}

func (stubPaymentMethodsService) Create(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error) {
	panic("unimplemented")
}

func (stubPaymentMethodsService) Delete(ctx context.Context, caller ids.CanonicalID, name string) ([]string, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			SessionTTLMinutes: 120,
		},
	}
}

func testServices() Services {
	return Services{
		Accounts:       &stubAccountsService{},
		Profiles:       &stubProfilesService{},
		Shares:         stubSharesService{},
		Invites:        stubInvitesService{},
		Campaigns:      stubCampaignsService{},
		Orders:         stubOrdersService{},
		Catalogs:       stubCatalogsService{},
		Templates:      stubTemplatesService{},
		PaymentMethods: stubPaymentMethodsService{},
	}
}

type stubLimiter struct {
	allowed bool
	scopes  []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, limit, nil
}

func newTestRouter(cfg *config.Config, sessions sessionManager, svcs Services) http.Handler {
	return newTestRouterWithLimiter(cfg, sessions, nil, svcs)
}

func newTestRouterWithLimiter(cfg *config.Config, sessions sessionManager, limiter middleware.FixedWindowLimiter, svcs Services) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, stubPinger{}, sessions, limiter, nil, svcs)
}

func buildToken(t *testing.T, cfg *config.Config, accountID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AccountID: accountID,
		Subject:   "auth0|test",
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), &stubSessionManager{active: true}, testServices())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health live got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &stubSessionManager{active: true}, testServices())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubSessionManager{active: true}, testServices())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestRevokedSessionRejected(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubSessionManager{active: false}, testServices())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestLoginMintsTokenAndStartsSession(t *testing.T) {
	cfg := testConfig()
	sessions := &stubSessionManager{active: true}
	accountsSvc := &stubAccountsService{}
	svcs := testServices()
	svcs.Accounts = accountsSvc
	router := newTestRouter(cfg, sessions, svcs)

	body := `{"subject":"auth0|abc","email":"seller@example.com","display_name":"Sam"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for login got %d: %s", resp.Code, resp.Body.String())
	}
	if accountsSvc.ensured != 1 {
		t.Fatalf("expected one EnsureAccount call got %d", accountsSvc.ensured)
	}
	if len(sessions.started) != 1 {
		t.Fatalf("expected one session start got %d", len(sessions.started))
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if envelope.Data.AccessToken == "" {
		t.Fatal("expected access token in response")
	}
	if envelope.Data.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s expiry got %d", envelope.Data.ExpiresIn)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg.JWT, envelope.Data.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.ID != sessions.started[0] {
		t.Fatal("token jti should match the started session")
	}
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(testConfig(), &stubSessionManager{}, testServices())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"subject":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid login body got %d", resp.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	cfg := testConfig()
	limiter := &stubLimiter{allowed: false}
	router := newTestRouterWithLimiter(cfg, &stubSessionManager{}, limiter, testServices())

	body := `{"subject":"auth0|abc","email":"seller@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when login limit exceeded got %d", resp.Code)
	}
	if len(limiter.scopes) != 1 || !strings.HasPrefix(limiter.scopes[0], "auth_login:") {
		t.Fatalf("expected one auth_login limiter hit got %v", limiter.scopes)
	}
}

func TestInviteRedeemRateLimitedPerAccount(t *testing.T) {
	cfg := testConfig()
	limiter := &stubLimiter{allowed: false}
	router := newTestRouterWithLimiter(cfg, &stubSessionManager{active: true}, limiter, testServices())

	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invites/redeem", strings.NewReader(`{"code":"ABC123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, accountID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when redeem limit exceeded got %d", resp.Code)
	}
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "invite_redeem:"+accountID.String() {
		t.Fatalf("expected redeem limiter keyed by account got %v", limiter.scopes)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	cfg := testConfig()
	sessions := &stubSessionManager{active: true}
	router := newTestRouter(cfg, sessions, testServices())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for logout got %d", resp.Code)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected one revoked session got %d", len(sessions.revoked))
	}
}

func TestProfileGetHidesMissingAndDenied(t *testing.T) {
	cfg := testConfig()
	svcs := testServices()
	svcs.Profiles = &stubProfilesService{profile: nil}
	router := newTestRouter(cfg, &stubSessionManager{active: true}, svcs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when profile resolves to nil got %d", resp.Code)
	}
}

func TestProfileGetReturnsVisibleProfile(t *testing.T) {
	cfg := testConfig()
	svcs := testServices()
	svcs.Profiles = &stubProfilesService{profile: &profiles.ProfileDTO{SellerName: "Sam"}}
	router := newTestRouter(cfg, &stubSessionManager{active: true}, svcs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for visible profile got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Sam") {
		t.Fatalf("expected profile payload, got %s", resp.Body.String())
	}
}

func TestTemplateDiscoverRouted(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubSessionManager{active: true}, testServices())

	body := `{"unit_type":"PACK","unit_number":123,"city":"Cedar Rapids","state":"IA","campaign_name":"Fall Popcorn","campaign_year":2026}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates/discover", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for discover got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), &stubSessionManager{}, testServices())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}
