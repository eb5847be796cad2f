package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/generates"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/permission"
	"github.com/medhist/annotation-iam/store"
	"github.com/medhist/annotation-iam/utils/password"
)

var (
	testAccessSecret  = []byte("test-access-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

const testIssuer = "annotation-iam-test"

func testPermissions(names ...string) []models.Permission {
	out := make([]models.Permission, 0, len(names))
	for _, n := range names {
		out = append(out, models.Permission{ID: "perm-" + strings.ToLower(n), Name: n})
	}
	return out
}

// testRoleCatalogue mirrors the seeded grants.
func testRoleCatalogue() map[string]models.Role {
	return map[string]models.Role{
		models.RoleAdmin: {ID: "role-admin", Name: models.RoleAdmin, Permissions: testPermissions(permission.Names()...)},
		models.RoleDoctor: {ID: "role-doctor", Name: models.RoleDoctor, Permissions: testPermissions(
			permission.ViewSamples, permission.CreateSample, permission.EditSample,
			permission.CreateAnnotation, permission.DeleteAnnotation, permission.ManageForms,
		)},
		models.RoleViewer: {ID: "role-viewer", Name: models.RoleViewer, Permissions: testPermissions(permission.ViewSamples)},
	}
}

// memoryUsers is an in-memory UserRepository.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	roles map[string]models.Role
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*models.User{}, roles: testRoleCatalogue()}
}

func (m *memoryUsers) copyOf(u *models.User) *models.User {
	c := *u
	c.Roles = append([]models.Role(nil), u.Roles...)
	return &c
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.NotFoundError("user not found")
	}
	return m.copyOf(u), nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return m.copyOf(u), nil
		}
	}
	return nil, errors.NotFoundError("user not found")
}

func (m *memoryUsers) List(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *m.copyOf(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryUsers) rolesByName(names []string) ([]models.Role, error) {
	out := make([]models.Role, 0, len(names))
	for _, n := range names {
		r, ok := m.roles[strings.ToUpper(n)]
		if !ok {
			return nil, errors.ValidationError("unknown role %s", n)
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryUsers) Create(_ context.Context, u *models.User, roleNames ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return errors.ConflictError("username already exists")
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return errors.ConflictError("email already exists")
		}
	}
	if len(roleNames) == 0 {
		roleNames = []string{models.DefaultRole}
	}
	roles, err := m.rolesByName(roleNames)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.IsActive = true
	u.Roles = roles
	u.CreatedAt, u.UpdatedAt = time.Now().UTC(), time.Now().UTC()
	m.users[u.ID] = m.copyOf(u)
	return nil
}

func (m *memoryUsers) Update(_ context.Context, id string, upd store.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.NotFoundError("user not found")
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Fullname != nil {
		u.Fullname = *upd.Fullname
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	return m.copyOf(u), nil
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.NotFoundError("user not found")
	}
	u.PasswordHash = hash
	return nil
}

func (m *memoryUsers) ReplaceRoles(_ context.Context, userID string, roleNames []string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, errors.NotFoundError("user not found")
	}
	roles, err := m.rolesByName(roleNames)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return m.copyOf(u), nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errors.NotFoundError("user not found")
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) setActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = active
}

// memoryRoles serves the role catalogue.
type memoryRoles struct{ roles map[string]models.Role }

func (m *memoryRoles) List(context.Context) ([]models.Role, error) {
	out := make([]models.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRoles) ListPermissions(context.Context) ([]models.Permission, error) {
	return testPermissions(permission.Names()...), nil
}

func (m *memoryRoles) ReplacePermissions(_ context.Context, roleID string, names []string) (*models.Role, error) {
	for k, r := range m.roles {
		if r.ID != roleID {
			continue
		}
		for _, n := range names {
			if !permission.IsKnown(n) {
				return nil, errors.ValidationError("unknown permission %s", n)
			}
		}
		r.Permissions = testPermissions(names...)
		m.roles[k] = r
		return &r, nil
	}
	return nil, errors.NotFoundError("role not found")
}

// memorySamples is an in-memory SampleRepository.
type memorySamples struct {
	mu      sync.Mutex
	samples map[string]*models.Sample
}

func (m *memorySamples) List(context.Context) ([]models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Sample, 0, len(m.samples))
	for _, s := range m.samples {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memorySamples) Get(_ context.Context, id string) (*models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.samples[id]
	if !ok {
		return nil, errors.NotFoundError("sample not found")
	}
	c := *s
	return &c, nil
}

func (m *memorySamples) Create(_ context.Context, s *models.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.samples {
		if existing.Code == s.Code {
			return errors.ConflictError("sample already exists")
		}
	}
	if s.ID == "" {
		s.ID = models.NewID()
	}
	c := *s
	m.samples[s.ID] = &c
	return nil
}

func (m *memorySamples) Update(_ context.Context, id string, upd store.SampleUpdate) (*models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.samples[id]
	if !ok {
		return nil, errors.NotFoundError("sample not found")
	}
	if upd.Code != nil {
		s.Code = *upd.Code
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.IsScanned != nil {
		s.IsScanned = *upd.IsScanned
	}
	c := *s
	return &c, nil
}

func (m *memorySamples) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.samples[id]; !ok {
		return errors.NotFoundError("sample not found")
	}
	delete(m.samples, id)
	return nil
}

// memoryAnnotations is an in-memory AnnotationRepository with the same
// owner-guarded writes as the SQL store.
type memoryAnnotations struct {
	mu    sync.Mutex
	items map[string]*models.ImageAnnotation
}

func (m *memoryAnnotations) ListBySample(_ context.Context, sampleID string) ([]models.ImageAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ImageAnnotation
	for _, a := range m.items {
		if a.SampleID == sampleID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryAnnotations) Get(_ context.Context, sampleID, id string) (*models.ImageAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.SampleID != sampleID {
		return nil, errors.NotFoundError("annotation not found")
	}
	c := *a
	return &c, nil
}

func (m *memoryAnnotations) Create(_ context.Context, a *models.ImageAnnotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = models.NewID()
	}
	c := *a
	m.items[a.ID] = &c
	return nil
}

func (m *memoryAnnotations) UpdateOwned(_ context.Context, id, ownerID string, upd store.AnnotationUpdate) (*models.ImageAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.CreatedBy != ownerID {
		return nil, errors.NotFoundError("annotation not found")
	}
	if upd.X != nil {
		a.X = *upd.X
	}
	if upd.Y != nil {
		a.Y = *upd.Y
	}
	if upd.Text != nil {
		a.Text = *upd.Text
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	c := *a
	return &c, nil
}

func (m *memoryAnnotations) DeleteOwned(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.CreatedBy != ownerID {
		return errors.NotFoundError("annotation not found")
	}
	delete(m.items, id)
	return nil
}

// testEnv is a full server over in-memory stores and an in-memory buntdb
// revocation list, served by httptest.
type testEnv struct {
	srv         *Server
	tokens      *generates.JWTGenerate
	users       *memoryUsers
	samples     *memorySamples
	annotations *memoryAnnotations
	ts          *httptest.Server
	e           *httpexpect.Expect
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := generates.NewJWTGenerate(generates.JWTOptions{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        testIssuer,
	})
	if err != nil {
		t.Fatalf("jwt generator: %v", err)
	}
	revocations, err := store.NewBuntRevocationStore(":memory:", store.DefaultRevocationConfig())
	if err != nil {
		t.Fatalf("revocation store: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		tokens:      tokens,
		users:       newMemoryUsers(),
		samples:     &memorySamples{samples: map[string]*models.Sample{}},
		annotations: &memoryAnnotations{items: map[string]*models.ImageAnnotation{}},
	}
	env.srv = NewServer(NewConfig(), Deps{
		Tokens:      tokens,
		Resolver:    identity.NewResolver(env.users),
		Passwords:   password.NewBcrypt(bcrypt.MinCost),
		Users:       env.users,
		Roles:       &memoryRoles{roles: testRoleCatalogue()},
		Samples:     env.samples,
		Annotations: env.annotations,
		Revocations: revocations,
		Log:         log,
	})
	env.ts = httptest.NewServer(NewGinEngine(env.srv))
	env.e = httpexpect.Default(t, env.ts.URL)
	t.Cleanup(func() {
		env.ts.Close()
		_ = revocations.Close()
	})
	return env
}

// addUser stores a user with the given password and roles.
func (env *testEnv) addUser(t *testing.T, username, plain string, roles ...string) *models.User {
	t.Helper()
	hash, err := env.srv.Passwords.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		Username:     username,
		Email:        username + "@example.org",
		Fullname:     strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: hash,
	}
	if err := env.users.Create(context.Background(), u, roles...); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// login returns the access and refresh tokens of a successful login.
func (env *testEnv) login(username, plain string) (string, string) {
	obj := env.e.POST("/api/auth/login").
		WithJSON(map[string]string{"username": username, "password": plain}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	return obj.Value("accessToken").String().Raw(), obj.Value("refreshToken").String().Raw()
}

func (env *testEnv) addSample(code, createdBy string) *models.Sample {
	s := &models.Sample{ID: models.NewID(), Code: code, CreatedBy: createdBy}
	_ = env.samples.Create(context.Background(), s)
	return s
}

func bearer(token string) string { return "Bearer " + token }
