package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/medhist/annotation-iam/models"
)

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "root", "s3cret-pass", models.RoleAdmin)
	admin, _ := env.login("root", "s3cret-pass")

	created := env.e.POST("/api/users").
		WithHeader("Authorization", bearer(admin)).
		WithJSON(map[string]interface{}{
			"username": "dora",
			"email":    "dora@example.org",
			"password": "s3cret-pass",
			"roles":    []string{models.RoleDoctor},
		}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()
	created.Value("roles").Array().ContainsOnly(models.RoleDoctor)
	id := created.Value("id").String().Raw()

	env.e.GET("/api/users").
		WithHeader("Authorization", bearer(admin)).
		Expect().
		Status(http.StatusOK).
		JSON().Array().Length().IsEqual(2)

	env.e.GET("/api/users/{id}", id).
		WithHeader("Authorization", bearer(admin)).
		Expect().
		Status(http.StatusOK).
		JSON().Object().ValueEqual("email", "dora@example.org")

	env.e.PUT("/api/users/{id}", id).
		WithHeader("Authorization", bearer(admin)).
		WithJSON(map[string]interface{}{"fullname": "Dora D."}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().ValueEqual("fullname", "Dora D.").ValueEqual("isActive", true)

	env.e.PUT("/api/users/{id}/roles", id).
		WithHeader("Authorization", bearer(admin)).
		WithJSON(map[string]interface{}{"roles": []string{models.RoleViewer}}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("roles").Array().ContainsOnly(models.RoleViewer)

	env.e.PUT("/api/users/{id}/roles", id).
		WithHeader("Authorization", bearer(admin)).
		WithJSON(map[string]interface{}{"roles": []string{"SUPERUSER"}}).
		Expect().
		Status(http.StatusBadRequest)

	// The new role takes effect on the next request without a new login.
	dora, _ := env.login("dora", "s3cret-pass")
	env.e.POST("/api/samples").
		WithHeader("Authorization", bearer(dora)).
		WithJSON(map[string]string{"code": "S-300"}).
		Expect().
		Status(http.StatusForbidden)

	env.e.PUT("/api/users/{id}", id).
		WithHeader("Authorization", bearer(admin)).
		WithJSON(map[string]interface{}{"isActive": false}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().ValueEqual("isActive", false)

	env.e.GET("/api/auth/profile").
		WithHeader("Authorization", bearer(dora)).
		Expect().
		Status(http.StatusUnauthorized)

	env.e.DELETE("/api/users/{id}", id).
		WithHeader("Authorization", bearer(admin)).
		Expect().
		Status(http.StatusNoContent)

	env.e.GET("/api/users/{id}", id).
		WithHeader("Authorization", bearer(admin)).
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().ValueEqual("error", "not_found")
}

func TestUserAdministrationRequiresManageUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "s3cret-pass", models.RoleDoctor)
	access, _ := env.login("alice", "s3cret-pass")

	env.e.PUT("/api/users/{id}", alice.ID).
		WithHeader("Authorization", bearer(access)).
		WithJSON(map[string]interface{}{"isActive": true}).
		Expect().
		Status(http.StatusForbidden)

	env.e.PUT("/api/users/{id}/roles", alice.ID).
		WithHeader("Authorization", bearer(access)).
		WithJSON(map[string]interface{}{"roles": []string{models.RoleAdmin}}).
		Expect().
		Status(http.StatusForbidden)

	if u, _ := env.users.GetByID(context.Background(), alice.ID); u.RoleNames()[0] != models.RoleDoctor {
		t.Fatalf("roles changed by a denied request: %v", u.RoleNames())
	}
}
