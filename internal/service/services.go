package service

import (
	postgres "github.com/tiketbaris/gate-go/internal/repository/postgres"
	redis "github.com/tiketbaris/gate-go/internal/repository/redis"
	"github.com/tiketbaris/gate-go/internal/service/issuer"
	"github.com/tiketbaris/gate-go/internal/service/query"
	"github.com/tiketbaris/gate-go/internal/service/redemption"
)

type Services struct {
	Issuer     *issuer.Service
	Redemption *redemption.Service
	Query      *query.Service
}

type Config struct {
	Issuer issuer.Config
	Query  query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.AdmissionsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Issuer:     issuer.New(store, cache, cfg.Issuer),
		Redemption: redemption.New(store, cache, pubsub, limiter),
		Query:      query.New(store, cache, cfg.Query),
	}
}
