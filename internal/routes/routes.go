package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/controllers"
	"github.com/poofware/todo-service/shared/go-middleware"
)

const (
	// Health
	Health = "/health"

	// Account endpoints
	UsersBase           = "/api/v1/users"
	UsersSignUp         = "/sign-up"
	UsersVerifyCode     = "/verify-code"
	UsersNewCode        = "/new-verification"
	UsersRegister       = "/register"
	UsersLogin          = "/login"
	UsersRefreshLogin   = "/refresh-login"
	UsersLogout         = "/log-out"
	UsersForgotPassword = "/forgot-password"
	UsersResetPassword  = "/reset-password"

	// Task endpoints
	TodoBase          = "/api/v1/todo"
	TodoListCurrent   = "/current/list"
	TodoListCompleted = "/completed/list"
	TodoCreate        = "/create"
	TodoDetail        = "/detail/{id:[0-9]+}"
	TodoUpdate        = "/update/{id:[0-9]+}"
	TodoDelete        = "/delete/{id:[0-9]+}"
	TodoComplete      = "/to_complete/{id:[0-9]+}"
)

type Controllers struct {
	Auth   *controllers.AuthController
	Tasks  *controllers.TaskController
	Health *controllers.HealthController
}

// NewRouter registers every endpoint. Each path answers with and without a
// trailing slash.
func NewRouter(cfg *config.Config, c Controllers) *mux.Router {
	router := mux.NewRouter()

	handle(router, Health, c.Health.HealthCheckHandler, http.MethodGet)

	// Public
	users := router.PathPrefix(UsersBase).Subrouter()
	handle(users, UsersSignUp, c.Auth.SignUp, http.MethodPost)
	handle(users, UsersLogin, c.Auth.Login, http.MethodPost)
	handle(users, UsersRefreshLogin, c.Auth.RefreshLogin, http.MethodPost)
	handle(users, UsersForgotPassword, c.Auth.ForgotPassword, http.MethodPost)

	// Any session, including one minted before the phone was confirmed
	pending := router.PathPrefix(UsersBase).Subrouter()
	pending.Use(middleware.AuthMiddleware(cfg.JWTSecret, false))
	handle(pending, UsersVerifyCode, c.Auth.VerifyCode, http.MethodPost)
	handle(pending, UsersNewCode, c.Auth.NewVerification, http.MethodGet, http.MethodPost)
	handle(pending, UsersLogout, c.Auth.Logout, http.MethodPost)

	// Verified sessions only (unless REQUIRE_VERIFIED_SESSION=false). The
	// forgot-password token is unverified, so reset-password needs the code
	// confirmed through verify-code before it is accepted.
	verified := router.PathPrefix(UsersBase).Subrouter()
	verified.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.RequireVerifiedSession))
	handle(verified, UsersRegister, c.Auth.Register, http.MethodPut, http.MethodPatch)
	handle(verified, UsersResetPassword, c.Auth.ResetPassword, http.MethodPut, http.MethodPatch)

	todo := router.PathPrefix(TodoBase).Subrouter()
	todo.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.RequireVerifiedSession))
	handle(todo, TodoListCurrent, c.Tasks.ListCurrent, http.MethodGet)
	handle(todo, TodoListCompleted, c.Tasks.ListCompleted, http.MethodGet)
	handle(todo, TodoCreate, c.Tasks.Create, http.MethodPost)
	handle(todo, TodoDetail, c.Tasks.Detail, http.MethodGet)
	handle(todo, TodoUpdate, c.Tasks.Update, http.MethodPut, http.MethodPatch)
	handle(todo, TodoDelete, c.Tasks.Delete, http.MethodDelete)
	handle(todo, TodoComplete, c.Tasks.Complete, http.MethodPost)

	return router
}

func handle(r *mux.Router, path string, h http.HandlerFunc, methods ...string) {
	r.HandleFunc(path, h).Methods(methods...)
	r.HandleFunc(path+"/", h).Methods(methods...)
}
