package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goldenkiwi/autoparc/backend/internal/cache"
	"github.com/goldenkiwi/autoparc/backend/internal/config"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/inflight"
	"github.com/goldenkiwi/autoparc/backend/internal/lifecycle"
	"github.com/goldenkiwi/autoparc/backend/internal/mailqueue"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	validator   *validation.Validator
	config      *config.Config
	repository  *repository.Repository
	lifecycle   *lifecycle.Service
	cache       *cache.Cache
	inflight    *inflight.Guard
	mail        *mailqueue.Publisher
	redisClient *redis.Client
	now         func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh mailqueue.Channel, rdb *redis.Client) (*Handler, error) {
	v, err := validation.New(cfg.Location())
	if err != nil {
		return nil, err
	}

	redisTimeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second
	queryCache := cache.New(rdb, time.Duration(cfg.Cache.TTL)*time.Second, redisTimeout)
	publisher := mailqueue.NewPublisher(mailCh, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	return &Handler{
		validator:   v,
		config:      cfg,
		repository:  repo,
		lifecycle:   lifecycle.NewService(repo, queryCache, publisher, v),
		cache:       queryCache,
		inflight:    inflight.New(rdb, time.Duration(cfg.Inflight.TTL)*time.Second, redisTimeout),
		mail:        publisher,
		redisClient: rdb,
		now:         time.Now,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Route("/reset-password", func(r chi.Router) {
				r.Post("/require", h.RequireResetPassword)
				r.Post("/confirm", h.ConfirmResetPassword)
			})
		})

		// everything below requires a session
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Use(h.me)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.GetMe)
				r.Patch("/password", h.UpdateMyPassword)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.GetAllEmployees)
				r.With(h.RequiredRole(domain.RoleAdmin)).Post("/", h.CreateEmployee)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.employeeInfo)
					r.Get("/", h.GetEmployee)
					r.With(h.preventOperateInitialAdmin, h.RequiredRole(domain.RoleAdmin)).Patch("/", h.UpdateEmployee)
					r.With(h.preventOperateInitialAdmin, h.RequiredRole(domain.RoleAdmin)).Delete("/", h.DeleteEmployee)
				})
			})

			r.Route("/operators", func(r chi.Router) {
				r.Get("/", h.ListOperators)
				r.Post("/", h.CreateOperator)
				r.Get("/available", h.ListAvailableOperators)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.operatorInfo)
					r.Get("/", h.GetOperator)
					r.Patch("/", h.UpdateOperator)
					r.Delete("/", h.DeleteOperator)
					r.Get("/assignment-history", h.GetOperatorAssignmentHistory)
					r.Get("/action-logs", h.GetOperatorActionLogs)
				})
			})

			r.Route("/cars", func(r chi.Router) {
				r.Get("/", h.ListCars)
				r.Post("/", h.CreateCar)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetCar)
					// same lock as assign: a car cannot be retired while it is being assigned
					r.With(h.singleFlight("assign"), h.carInfo).Patch("/", h.UpdateCar)
					r.With(h.singleFlight("assign"), h.carInfo).Delete("/", h.DeleteCar)
					r.With(h.singleFlight("assign")).Post("/assign", h.AssignOperator)
					r.With(h.singleFlight("unassign")).Post("/unassign", h.UnassignCar)
					r.Get("/assignment-history", h.GetCarAssignmentHistory)
					r.Get("/action-logs", h.GetCarActionLogs)
				})
			})

			r.Route("/assignments/{id}", func(r chi.Router) {
				r.With(h.singleFlight("unassign")).Post("/unassign", h.UnassignAssignment)
				r.With(h.singleFlight("notes")).Patch("/notes", h.UpdateAssignmentNotes)
			})
		})
	})
}
