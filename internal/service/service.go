package service

import (
	"debate_hub/internal/repository"
	"debate_hub/pkg/config"
)

type Services struct {
	User    *UserService
	Debate  *DebateService
	Hub     *Hub
	Sweeper *Sweeper
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	hub := NewHub()
	clock := SystemClock()

	translator := NewHTTPTranslator(cfg.Translator.URL, cfg.TranslatorTimeout())
	fanout := NewTranslationFanout(translator, cfg.TranslatorTimeout())

	userService := NewUserService(repos.User)
	debateService := NewDebateService(repos.Debate, repos.User, hub, fanout, clock)
	sweeper := NewSweeper(repos.Debate, hub, clock, cfg.SweepInterval())

	return &Services{
		User:    userService,
		Debate:  debateService,
		Hub:     hub,
		Sweeper: sweeper,
	}
}
